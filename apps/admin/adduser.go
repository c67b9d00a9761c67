package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/user"
)

var errUnknownRole = errors.New("unknown role")

// addUser updates or creates an active user.User.
// Network admins belong to no organization.
func (cli *commandLine) addUser(uname, email, pwd, role, orgID string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	orgID = core.CleanString(orgID)

	r := capability.RolePlayer
	if role != "" {
		r = capability.Role(core.CleanString(role, true /* lower */))
		if !r.IsValid() {
			return errUnknownRole
		}
	}
	if !r.IsOrgScoped() {
		orgID = ""
	}
	if orgID != "" {
		exists, err := cli.usrRepo.OrganizationExists(ctx, orgID)
		if err != nil {
			return err
		}
		if !exists {
			return user.ErrUnknownOrganization
		}
	}

	create := false
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{Name: uname, Username: uname, Email: email, Badges: []string{}, CreatedAt: now}
		create = true
	}
	usr.Role = r
	usr.OrganizationID = orgID
	usr.UpdatedAt = time.Now().UTC()
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if create {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
