package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := NewRecorder()
	scoped := NewScopedAPI("isu_client", NewScopedAPI("outer", recorder))

	scoped.ReportBroken("client.logout", "param")
	scoped.ReportWarning("client.bootstrap")
	scoped.ReportCount("gradebooks", 3)

	broken := recorder.Reports(REPORT_BROKEN)
	require.Len(t, broken, 1)
	require.Equal(t, "outer: isu_client: client.logout", broken[0].Id)
	require.Equal(t, []any{"param"}, broken[0].Params)

	require.Equal(t, []string{"outer: isu_client: client.logout"}, recorder.Broken("client.logout"))
	require.Empty(t, recorder.Broken("client.authenticate"))

	counts := recorder.Reports(REPORT_COUNT)
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)
}

type memoryOutput map[string]string

func (m memoryOutput) Write(id string, contents string) {
	m[id] = contents
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	recorder := NewRecorder()
	output := memoryOutput{}

	client := resty.New()
	InstrumentResty(client, recorder, output)

	res, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, res.StatusCode())

	require.Contains(t, output, "1")
	require.Contains(t, output["1"], "short and stout")
	require.Contains(t, output["1"], "418")

	debug := recorder.Reports(REPORT_DEBUG)
	require.Len(t, debug, 2)
	require.Equal(t, report_resty_request, debug[0].Id)
	require.Equal(t, report_resty_response, debug[1].Id)

	_, err = client.R().Get("http://127.0.0.1:1")
	require.Error(t, err)
	require.Len(t, recorder.Broken(report_resty_response), 1)
}
