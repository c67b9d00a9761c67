package main

import (
	"context"
	"fmt"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/organization"
)

// decideGrant decides the organization's pending request for the capability,
// filing the request first if there is none.
func (cli *commandLine) decideGrant(orgID, grantType string, decision core.Decision, note string) error {
	ctx := context.Background()

	filter := &organization.GrantFilter{
		OrganizationID: orgID,
		Type:           capability.GrantType(grantType),
		Status:         capability.StatusPending,
	}
	filter.Clean()
	pending, err := cli.orgSvc.QueryGrants(ctx, filter)
	if err != nil {
		return err
	}

	var grant capability.Grant
	if len(pending) > 0 {
		grant = pending[0]
	} else if grant, err = cli.orgSvc.RequestGrant(ctx, orgID, organization.GrantRequest{Type: grantType}); err != nil {
		return err
	}

	grant, err = cli.orgSvc.DecideGrant(ctx, grant.ID, decision, "", core.ReviewNote{Note: note})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", grant.Type, grant.Status)
	return nil
}
