package main

import (
	"context"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// addUser creates an approved user.User, or updates the one owning email.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	role := user.RoleTeacher
	if isAdmin {
		role = user.RoleAdmin
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		nu := user.NewUser{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Role:            role,
		}
		if err = nu.Validate(cli.usrSvc); err != nil {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, nu)
		return err
	}

	approved := true
	uu := user.UpdateUser{Name: name, Role: role, IsApproved: &approved}
	if err = uu.Validate(usr); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr, pwd)
	return err
}
