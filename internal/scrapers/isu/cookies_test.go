package isu

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMergeFirstValueWins(t *testing.T) {
	store := NewCookieStore()

	added := store.Merge(CookiePairs{"x": "1"})
	require.Equal(t, 1, added)
	added = store.Merge(CookiePairs{"x": "2"})
	require.Equal(t, 0, added)

	cookie, ok := store.Get("x")
	require.True(t, ok)
	require.Equal(t, "1", cookie.Value)
	require.Equal(t, 1, store.Len())

	// the same holds across source kinds
	added = store.Merge(CookieList{{Name: "x", Value: "3"}, {Name: "y", Value: "4"}})
	require.Equal(t, 1, added)
	cookie, _ = store.Get("x")
	require.Equal(t, "1", cookie.Value)

	require.False(t, store.SetIfAbsent(Cookie{Name: "y", Value: "5"}))
	require.True(t, store.SetIfAbsent(Cookie{Name: "z", Value: "6"}))
}

func TestCookieStoreListing(t *testing.T) {
	store := NewCookieStore()
	store.Merge(CookiePairs{
		CookieToken:   "tok",
		CookieSession: "sess",
		CookiePerson:  "77001",
	})

	names := []string{}
	for _, cookie := range store.List() {
		names = append(names, cookie.Name)
	}
	require.Equal(t, []string{CookieSession, CookiePerson, CookieToken}, names)

	require.True(t, store.ContainsAll(RegisteredCookies...))
	require.False(t, store.ContainsAll(CookiePerson, "missing"))

	expected := []*http.Cookie{
		{Name: CookieSession, Value: "sess"},
		{Name: CookiePerson, Value: "77001"},
		{Name: CookieToken, Value: "tok"},
	}
	if diff := cmp.Diff(expected, store.HttpCookies()); diff != "" {
		t.Fatal("unexpected request cookies (-want +got):\n", diff)
	}

	store.Clear()
	require.Equal(t, 0, store.Len())
	require.Empty(t, store.List())
	require.False(t, store.ContainsAll(CookieSession))
}

func TestFromHttpCookies(t *testing.T) {
	now := time.Date(2024, time.September, 2, 9, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	list := FromHttpCookies([]*http.Cookie{
		{Name: "plain", Value: "a", Path: "/"},
		{Name: "deleted", Value: "", MaxAge: -1},
		{Name: "stale", Value: "b", Expires: now.Add(-time.Hour)},
		{Name: "dated", Value: "c", Expires: future, Secure: true},
		{Name: "aged", Value: "d", MaxAge: 60},
		nil,
	}, now)

	aged := now.Add(time.Minute)
	expected := CookieList{
		{Name: "plain", Value: "a", Path: "/"},
		{Name: "dated", Value: "c", Expires: &future, Secure: true},
		{Name: "aged", Value: "d", Expires: &aged},
	}
	if diff := cmp.Diff(expected, list); diff != "" {
		t.Fatal("unexpected cookies (-want +got):\n", diff)
	}
}

func TestCookieRoundTripsAttributes(t *testing.T) {
	expires := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	cookie := Cookie{Name: CookieToken, Value: "tok", Path: "/", Secure: true, Expires: &expires}

	out := cookie.HttpCookie()
	require.Equal(t, CookieToken, out.Name)
	require.Equal(t, "tok", out.Value)
	require.Equal(t, "/", out.Path)
	require.True(t, out.Secure)
	require.True(t, out.Expires.Equal(expires))
}
