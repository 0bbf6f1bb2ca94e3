package minjq

import (
	"os/user"
)

const PathPrefix = "/mnt/minjq"

func Group(u *user.User) (string, error) {
	return u.Gid, nil
}
