//go:build !unix

package backup

import "errors"

func mkfifo(string) error {
	return errors.New("mkfifo not supported")
}
