package commands

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	keyringService  = "isugrades-cli"
	keyringLoginKey = "default-login"
)

var (
	keyringSet = keyring.Set
	keyringGet = keyring.Get
)

// saveCredentials remembers the login as the default one and its password.
func saveCredentials(login, password string) error {
	err := keyringSet(keyringService, keyringLoginKey, login)
	if err != nil {
		return err
	}
	return keyringSet(keyringService, login, password)
}

// loadCredentials returns the saved password of login, if login is empty the
// default login is used. ok is false if nothing was saved.
func loadCredentials(login string) (string, string, bool, error) {
	if login == "" {
		saved, err := keyringGet(keyringService, keyringLoginKey)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", "", false, nil
		}
		if err != nil {
			return "", "", false, err
		}
		login = saved
	}

	password, err := keyringGet(keyringService, login)
	if errors.Is(err, keyring.ErrNotFound) {
		return login, "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return login, password, true, nil
}
