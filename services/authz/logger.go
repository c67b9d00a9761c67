package authz

import (
	"fmt"
	"strings"

	casbinlog "github.com/casbin/casbin/v2/log"

	"github.com/cinetwork/cin/backend/core"
)

// casbinLogger forwards casbin events to a core.Logger: debug traces are off by default.
type casbinLogger struct {
	enabled bool
	logger  core.Logger
}

var _ casbinlog.Logger = (*casbinLogger)(nil)

func newCasbinLogger(logger core.Logger) *casbinLogger {
	return &casbinLogger{logger: logger}
}

func (l *casbinLogger) EnableLog(enable bool) { l.enabled = enable }
func (l *casbinLogger) IsEnabled() bool       { return l.enabled }

func (l *casbinLogger) LogModel(model [][]string) {
	if l.enabled {
		l.logger.Debug(fmt.Sprintf("casbin model: %v", model))
	}
}

func (l *casbinLogger) LogEnforce(_ string, request []interface{}, result bool, _ [][]string) {
	if !l.enabled {
		return
	}
	parts := make([]string, len(request))
	for i, rval := range request {
		parts[i] = fmt.Sprint(rval)
	}
	l.logger.Debug(fmt.Sprintf("casbin enforce: %s ---> %t", strings.Join(parts, ", "), result))
}

func (l *casbinLogger) LogRole(roles []string) {
	if l.enabled {
		l.logger.Debug("casbin roles: " + strings.Join(roles, ", "))
	}
}

func (l *casbinLogger) LogPolicy(policy map[string][][]string) {
	if l.enabled {
		l.logger.Debug(fmt.Sprintf("casbin policy: %v", policy))
	}
}

// LogError always logs.
func (l *casbinLogger) LogError(err error, msg ...string) {
	l.logger.Error(fmt.Sprintf("casbin: %s: %v", strings.Join(msg, " "), err), err)
}
