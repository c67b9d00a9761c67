package main

import (
	"context"
	"log"
	"os"

	"github.com/cinetwork/cin/backend/assets"
	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/organization"
	emailsvc "github.com/cinetwork/cin/backend/services/email"
	logsvc "github.com/cinetwork/cin/backend/services/logger"
	"github.com/cinetwork/cin/backend/storage/database"
	sqlxrepos "github.com/cinetwork/cin/backend/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	errAndDie(database.CreateIfNotExist(context.Background(), conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	validate, translator := core.NewValidator()
	organization.InitValidators(validate, translator)
	errAndDie(core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf.FrontendBaseURL, false))
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
		orgSvc:  organization.NewService(sqlxrepos.NewOrganizationRepository(db), mailSvc, validate),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
