package tool

import (
	"github.com/relaydesk/relay/internal/faq"
	"github.com/relaydesk/relay/internal/secret"
	"go.uber.org/zap"
)

// BuiltinDeps carries the collaborators the built-in tools need. Optional
// fields may be nil; the corresponding tool degrades rather than vanishes,
// except the knowledge tool which is only registered when a searcher exists.
type BuiltinDeps struct {
	Secrets  *secret.Codec
	Matcher  *faq.Matcher
	Searcher KnowledgeSearcher
	Notifier HandoffNotifier
	Calendar *CalendarStore
	Logger   *zap.Logger
}

// RegisterBuiltins wires the default tool set into the registry.
func RegisterBuiltins(reg *Registry, deps BuiltinDeps) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Matcher == nil {
		deps.Matcher = faq.NewMatcher(nil, logger)
	}
	if deps.Calendar == nil {
		deps.Calendar = NewCalendarStore()
	}

	reg.Register(NewAPICaller(deps.Secrets, logger))
	reg.Register(NewCalculator())
	reg.Register(NewClock())
	reg.Register(NewJSONUtil())
	reg.Register(NewFAQTool(deps.Matcher, logger))
	reg.Register(NewHandoff(deps.Notifier, logger))
	reg.Register(NewCalendar(deps.Calendar, logger))
	if deps.Searcher != nil {
		reg.Register(NewKnowledge(deps.Searcher, logger))
	}
}
