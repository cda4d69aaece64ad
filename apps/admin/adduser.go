package main

import (
	"context"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, pwd string, isAdmin bool) error {
	_, err := cli.usrSvc.AddUser(context.Background(), uname, pwd, isAdmin)
	return err
}
