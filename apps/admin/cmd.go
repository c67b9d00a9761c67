package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
	orgSvc  *organization.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-admin] [-role ROLE] [-org ID] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  grant -org ID -type TYPE -decision approve|reject [-note NOTE] - decide an organization's capability")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Make the user a network admin.")
	addUserRole := addUserCmd.String("role", "", "The user's role: cin_admin, org_admin or player (default).")
	addUserOrg := addUserCmd.String("org", "", "The ID of the user's organization.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	grantCmd := flag.NewFlagSet("grant", flag.ContinueOnError)
	grantOrg := grantCmd.String("org", "", "The organization's ID.")
	grantType := grantCmd.String("type", "", "The capability: player_org, mission_creator or reward_creator.")
	grantDecision := grantCmd.String("decision", "", "approve or reject.")
	grantNote := grantCmd.String("note", "", "An optional note for the organization.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role := *addUserRole
		if *addUserAdmin {
			role = "cin_admin"
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, role, *addUserOrg)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "grant":
		if err := grantCmd.Parse(args[2:]); err != nil {
			return err
		}
		decision := core.Decision(core.CleanString(*grantDecision, true /* lower */))
		if *grantOrg == "" || *grantType == "" || !decision.IsValid() {
			grantCmd.Usage()
			return errHelp
		}
		return cli.decideGrant(*grantOrg, *grantType, decision, *grantNote)

	default:
		cli.printUsage()
		return errHelp
	}
}
