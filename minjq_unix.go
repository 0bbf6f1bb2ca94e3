//go:build !plan9

// Package minjq holds the platform specifics of the minjq file server.
package minjq

import (
	"fmt"
	"os/user"
)

// PathPrefix is where the file server is posted.
const PathPrefix = "minjq"

func Group(u *user.User) (string, error) {
	g, err := user.LookupGroupId(u.Gid)
	if err != nil {
		return "", fmt.Errorf("get group: %w", err)
	}
	return g.Name, nil
}
