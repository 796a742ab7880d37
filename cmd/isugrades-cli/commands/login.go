package commands

import (
	"context"
	"fmt"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/scrapers/isu"
	"isugrades-backend/pkg/restyutil"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

var (
	loginName        string
	loginBaseUrl     string
	loginSave        bool
	loginDump        bool
	loginCloudflare  bool
	loginTimeoutSecs int
)

func init() {
	loginCmd.Flags().StringVarP(&loginName, "login", "l", "", "The portal login, defaults to the saved one.")
	loginCmd.Flags().StringVar(&loginBaseUrl, "base-url", isu.DefaultBaseUrl, "The portal to log into.")
	loginCmd.Flags().BoolVar(&loginSave, "save", false, "Save the credentials in the system keyring after a successful login.")
	loginCmd.Flags().BoolVar(&loginDump, "dump", false, "Write every portal request to <dev_state>/resty/isu-cli.")
	loginCmd.Flags().BoolVar(&loginCloudflare, "cloudflare", false, "Use the cloudflare bypass transport.")
	loginCmd.Flags().IntVar(&loginTimeoutSecs, "timeout", 30, "Timeout of a single portal request in seconds.")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [--login <login>] [--save]",
	Short: "Logs into the portal, syncs the gradebook and logs out again.",
	RunE: func(cmd *cobra.Command, args []string) error {
		login, password, err := resolveCredentials(input.DefaultUI())
		if err != nil {
			return fmt.Errorf("read credentials: %w", err)
		}

		store, sqlite, clock, err := openStore()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer sqlite.Close()

		opts := isu.Options{
			BaseUrl:          loginBaseUrl,
			Timeout:          time.Duration(loginTimeoutSecs) * time.Second,
			CloudflareBypass: loginCloudflare,
			Store:            store,
			Time:             clock,
			Telemetry:        telemetry.SlogAPI{},
		}
		if loginDump {
			output, err := restyutil.NewFilesystemOutput("<dev_state>/resty/isu-cli")
			if err != nil {
				return fmt.Errorf("create resty output: %w", err)
			}
			opts.Output = output
		}

		err = isu.WithSession(cmd.Context(), opts, func(ctx context.Context, client *isu.Client) error {
			ok, err := client.Authenticate(ctx, login, password)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("the portal rejected the credentials of %s", login)
			}
			if err := client.LastSyncError(); err != nil {
				return fmt.Errorf("logged in but the gradebook could not be synced: %w", err)
			}

			owner, _ := client.OwnerID()
			record, found, err := client.GradebookRecord(ctx, owner)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no gradebook stored for owner %d", owner)
			}
			renderRecord(NewTable(), record)
			return nil
		})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		if loginSave {
			err = saveCredentials(login, password)
			if err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}
		}
		return nil
	},
}

type asker interface {
	Ask(query string, opts *input.Options) (string, error)
}

// resolveCredentials takes the login from the flag or the keyring and asks
// for whatever is missing.
func resolveCredentials(ui asker) (string, string, error) {
	login, password, found, err := loadCredentials(loginName)
	if err != nil {
		return "", "", err
	}
	if found {
		return login, password, nil
	}

	if login == "" {
		login, err = ui.Ask("login:", &input.Options{Required: true, HideOrder: true})
		if err != nil {
			return "", "", err
		}
	}
	password, err = ui.Ask("password:", &input.Options{Required: true, HideOrder: true, Mask: true})
	if err != nil {
		return "", "", err
	}
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", "", fmt.Errorf("login and password must not be empty")
	}
	return login, password, nil
}
