// Package di wires the API dependencies together.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/cinetwork/cin/backend/apps/api/echo"
	"github.com/cinetwork/cin/backend/assets"
	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
	"github.com/cinetwork/cin/backend/services/authz"
	emailsvc "github.com/cinetwork/cin/backend/services/email"
	logsvc "github.com/cinetwork/cin/backend/services/logger"
	metricsvc "github.com/cinetwork/cin/backend/services/metrics"
	"github.com/cinetwork/cin/backend/storage/database"
	sqlxrepos "github.com/cinetwork/cin/backend/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	Enforcer      *authz.Enforcer
	Metrics       *metricsvc.Metrics
	UserSvc       *user.Service
	OrgSvc        *organization.Service
	MissionSvc    *mission.Service
	SubmissionSvc *submission.Service
	RewardSvc     *reward.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf.FrontendBaseURL, false); err != nil {
		logger.Fatal(err.Error(), err)
	}
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	organization.InitValidators(validate, translator)
	mission.InitValidators(validate, translator)
	return validate, translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Enforcer:      p.Enforcer,
		Metrics:       p.Metrics,
		UserSvc:       p.UserSvc,
		OrgSvc:        p.OrgSvc,
		MissionSvc:    p.MissionSvc,
		SubmissionSvc: p.SubmissionSvc,
		RewardSvc:     p.RewardSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(authz.NewEnforcer))
	must(c.Provide(metricsvc.New))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewOrganizationRepository))
	must(c.Provide(sqlxrepos.NewMissionRepository))
	must(c.Provide(sqlxrepos.NewSubmissionRepository))
	must(c.Provide(sqlxrepos.NewRewardRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(organization.NewService))
	must(c.Provide(mission.NewService))
	must(c.Provide(func(repo mission.Repository) submission.MissionFinder { return repo }))
	must(c.Provide(submission.NewService))
	must(c.Provide(func(svc *user.Service) reward.PointsFinder { return svc }))
	must(c.Provide(reward.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
