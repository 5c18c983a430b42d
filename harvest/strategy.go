package harvest

import (
	"net/url"
	"strings"

	"github.com/hazyhaar/vidharvest/harvest/internal/navigate"
)

// Strategy names the flow used for one address.
type Strategy string

const (
	// StrategyModulePaging signs in, enters the course, walks the sidebar
	// lessons and follows the next control.
	StrategyModulePaging Strategy = "module_paging"
	// StrategySingleContent signs in and follows the next control from a
	// single content page.
	StrategySingleContent Strategy = "single_content"
	// StrategyLessonChain drives an authoring share link lesson by lesson.
	StrategyLessonChain Strategy = "lesson_chain"
)

// SelectStrategy returns lesson_chain for authoring share links and
// module_paging for everything else. It never touches a browser.
func SelectStrategy(address string) Strategy {
	if isLessonChain(address) {
		return StrategyLessonChain
	}
	return StrategyModulePaging
}

func isLessonChain(address string) bool {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "rise.articulate.com" && strings.Contains(u.Path, "/share/") {
		return true
	}
	return strings.HasSuffix(host, ".articulateusercontent.com")
}

func (s Strategy) plan(address string) navigate.Plan {
	switch s {
	case StrategyLessonChain:
		return navigate.LessonChainPlan(address)
	case StrategySingleContent:
		return navigate.SinglePlan(address)
	default:
		return navigate.ModulePlan(address)
	}
}
