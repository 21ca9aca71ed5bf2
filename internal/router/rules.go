// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// The heuristic classifiers of the router. Every keyword list and pattern
// the pipeline matches against user text lives in this file.

// rankingKeywords mark a request for a ranked recommendation.
var rankingKeywords = []string{
	"recommend", "compare", "comparison", "versus", " vs", "vs.", "best", "which",
	"should i use", "should we use", "choose", "pick", "better", "alternative",
	"추천", "비교", "대비", "선택", "어떤 도구", "좋을까", "적합", "최적", "어떤게", "하나만", "차이", "더 좋은", "어느게",
}

var teamSizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*명`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:[a-z+#.]+\s+)?(?:people|persons|devs|developers|engineers|members|seats|users)\b`),
	regexp.MustCompile(`(?i)(\d+)[\s-]*(?:person|people|member|dev|developer)\s+team\b`),
	regexp.MustCompile(`(?i)team\s+of\s+(\d+)\b`),
}

var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$\s*(\d+(?:\.\d+)?)\s*(?:/|per|a|an)\s*(?:mo|month)`),
	regexp.MustCompile(`(?i)(?:under|below|less than|up to|at most|max(?:imum)?|within)\s*\$\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)budget\s*(?:of|is|:)?\s*\$?\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:usd|dollars)\b`),
	regexp.MustCompile(`월\s*\$?\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`\$?\s*(\d+(?:\.\d+)?)\s*(?:달러)?\s*(?:까지|가능|이하|이내)`),
}

var freeOnlyKeywords = []string{"free only", "only free", "free tools only", "무료만", "무료로"}

// teamFraming marks text that frames the user as an individual or a team
// without giving a size.
var teamFraming = []string{
	"solo", "just me", "myself", "individual", "personal", "freelance", "our team", "my team",
	"small team", "startup", "혼자", "개인", "팀에서", "우리 팀", "스타트업",
}

// languageKeywords maps lower-case tokens to canonical language names. Bare
// "Go" is matched case-sensitively in Languages.
var languageKeywords = map[string]string{
	"python":     "Python",
	"java":       "Java",
	"javascript": "JavaScript",
	"js":         "JavaScript",
	"typescript": "TypeScript",
	"ts":         "TypeScript",
	"golang":     "Go",
	"rust":       "Rust",
	"c++":        "C++",
	"cpp":        "C++",
	"c#":         "C#",
	"csharp":     "C#",
	"php":        "PHP",
	"ruby":       "Ruby",
	"swift":      "Swift",
	"kotlin":     "Kotlin",
	"scala":      "Scala",
	"node.js":    "JavaScript",
	"nodejs":     "JavaScript",
	"dart":       "Dart",
	"perl":       "Perl",
	"lua":        "Lua",
}

// frameworkHints maps frameworks to the languages they imply.
var frameworkHints = map[string][]string{
	"react":   {"JavaScript", "TypeScript"},
	"vue":     {"JavaScript", "TypeScript"},
	"angular": {"JavaScript", "TypeScript"},
	"next.js": {"JavaScript", "TypeScript"},
	"spring":  {"Java"},
	"django":  {"Python"},
	"flask":   {"Python"},
	"fastapi": {"Python"},
	"rails":   {"Ruby"},
	"laravel": {"PHP"},
	"flutter": {"Dart"},
}

// productNames contain integration names but are tools, not integrations.
var productNames = []string{"github copilot", "gitlab duo"}

var integrationKeywords = map[string]string{
	"github":       "GitHub",
	"gitlab":       "GitLab",
	"slack":        "Slack",
	"jira":         "Jira",
	"bitbucket":    "Bitbucket",
	"azure devops": "Azure DevOps",
	"notion":       "Notion",
	"trello":       "Trello",
}

var workflowKeywords = []struct {
	keywords []string
	adds     []types.WorkflowType
}{
	{[]string{"code review", "review", "pull request", "리뷰"}, []types.WorkflowType{types.WorkflowReview}},
	{[]string{"generat", "write code", "writing code", "코드 생성", "코드 작성"}, []types.WorkflowType{types.WorkflowGeneration, types.WorkflowCompletion}},
	{[]string{"autocomplete", "auto-complete", "completion", "자동완성", "자동 완성"}, []types.WorkflowType{types.WorkflowCompletion}},
	{[]string{"refactor", "리팩토링", "리팩터링"}, []types.WorkflowType{types.WorkflowRefactoring}},
	{[]string{"debug", "bug fix", "fix bugs", "디버깅"}, []types.WorkflowType{types.WorkflowDebugging}},
	{[]string{"documentation", "docstring", "write docs", "문서화"}, []types.WorkflowType{types.WorkflowDocumentation}},
}

// isolationKeywords mark a requirement that code never leaves the user's
// environment. General talk about security or privacy does not count.
var isolationKeywords = []string{
	"on-prem", "on prem", "self-host", "self host", "air-gapped", "air gapped",
	"no code leaves", "code must not leave", "code must stay", "code stays in", "never leave our",
	"offline only", "no data transmission",
	"외부 전송", "온프레미스", "사내 서버", "사내 구축", "폐쇄망",
}

// priceSortKeywords mark a follow-up that asks to re-sort the last ranking.
var priceSortKeywords = []string{
	"sort by price", "sort them by price", "sort these by price", "order by price", "by price",
	"cheapest first", "cheapest one", "가격순", "가격 순", "싼 순", "저렴한 순",
}

// explainKeywords mark a follow-up about the previous answer itself.
var explainKeywords = []string{
	"why ", "why?", "explain", "summarize", "summary", "왜", "이유", "요약", "설명해",
}

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "good morning": true, "good evening": true,
	"thanks": true, "thank you": true, "안녕": true, "안녕하세요": true, "고마워": true, "감사합니다": true,
}

var bareGo = regexp.MustCompile(`\bGo\b`)

// IsRankingQuestion reports whether the turn asks for a ranked answer. The
// brief's question type decides first; the keyword rules can only add.
func IsRankingQuestion(qt types.QuestionType, message string) bool {
	if qt == types.QuestionDecision || qt == types.QuestionComparison {
		return true
	}
	lower := strings.ReplaceAll(strings.ToLower(message), "vs code", "")
	return containsAny(lower, rankingKeywords)
}

// IsGreeting reports whether message is only a greeting.
func IsGreeting(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.TrimRight(m, "!.?~ ")
	return greetings[m]
}

// TeamSize extracts a team size from text.
func TeamSize(text string) (int, bool) {
	for _, re := range teamSizePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// Budget extracts a monthly budget in USD from text. A free-only request is
// a budget of zero.
func Budget(text string) (float64, bool) {
	lower := strings.ToLower(text)
	if containsAny(lower, freeOnlyKeywords) {
		return 0, true
	}
	for _, re := range budgetPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 {
				return v, true
			}
		}
	}
	return 0, false
}

// Languages returns the languages named or implied in text, in a stable
// order.
func Languages(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if !containsFold(out, n) {
				out = append(out, n)
			}
		}
	}
	for _, kw := range sortedKeys(languageKeywords) {
		if hasToken(lower, kw) {
			add(languageKeywords[kw])
		}
	}
	if bareGo.MatchString(text) {
		add("Go")
	}
	for _, kw := range sortedKeys(frameworkHints) {
		if hasToken(lower, kw) {
			add(frameworkHints[kw]...)
		}
	}
	return out
}

// Integrations returns the integrations named in text.
func Integrations(text string) []string {
	lower := strings.ToLower(text)
	for _, p := range productNames {
		lower = strings.ReplaceAll(lower, p, "")
	}
	var out []string
	for _, kw := range sortedKeys(integrationKeywords) {
		if strings.Contains(lower, kw) {
			out = append(out, integrationKeywords[kw])
		}
	}
	return out
}

// Workflows returns the workflow types named in text.
func Workflows(text string) []types.WorkflowType {
	lower := strings.ToLower(text)
	var out []types.WorkflowType
	for _, rule := range workflowKeywords {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		for _, w := range rule.adds {
			if !containsWorkflow(out, w) {
				out = append(out, w)
			}
		}
	}
	return out
}

// SecurityRequired reports whether text makes isolation mandatory: code
// must stay on premises or never be transmitted.
func SecurityRequired(text string) bool {
	return containsAny(strings.ToLower(text), isolationKeywords)
}

// HasTeamFraming reports whether text frames the user as an individual or
// a team.
func HasTeamFraming(text string) bool {
	return containsAny(strings.ToLower(text), teamFraming)
}

// HistoryAnswerable reports whether a follow-up can be answered from the
// previous answers without new research, and whether it asks for a price
// re-sort. It requires an earlier ranking and no new constraint in the
// message.
func HistoryAnswerable(st *types.TurnState) (answerable, byPrice bool) {
	if !st.IsFollowUp() || len(st.LastRecommended()) == 0 {
		return false, false
	}
	msg := st.LastUserMessage()
	if introducesConstraints(msg) {
		return false, false
	}
	lower := strings.ToLower(msg)
	if containsAny(lower, priceSortKeywords) {
		return true, true
	}
	if containsAny(lower, explainKeywords) {
		return true, false
	}
	return false, false
}

func introducesConstraints(msg string) bool {
	if _, ok := TeamSize(msg); ok {
		return true
	}
	if _, ok := Budget(msg); ok {
		return true
	}
	return len(Languages(msg)) > 0 || len(Integrations(msg)) > 0
}

// BuildContext merges the brief's hard constraints with the heuristic
// signals found in the user's messages. Extracted constraints win;
// heuristics fill gaps. Scalar signals come from the newest message that
// states them; list signals accumulate across messages.
func BuildContext(brief types.Brief, messages []types.Message) types.UserContext {
	hc := brief.Constraints
	uc := types.UserContext{
		SecurityRequired: hc.SecurityRequired,
		Excluded:         cleanNames(hc.Excluded),
		TechStack:        cleanNames(hc.Languages),
		Integrations:     cleanNames(hc.IDEs),
	}
	if hc.TeamSize != nil && *hc.TeamSize > 0 {
		v := *hc.TeamSize
		uc.TeamSize = &v
	}
	if hc.BudgetMax != nil && *hc.BudgetMax >= 0 {
		v := *hc.BudgetMax
		uc.BudgetMax = &v
	}

	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != types.RoleUser {
			continue
		}
		if uc.TeamSize == nil {
			if n, ok := TeamSize(m.Content); ok {
				uc.TeamSize = &n
			}
		}
		if uc.BudgetMax == nil {
			if v, ok := Budget(m.Content); ok {
				uc.BudgetMax = &v
			}
		}
		for _, l := range Languages(m.Content) {
			if !containsFold(uc.TechStack, l) {
				uc.TechStack = append(uc.TechStack, l)
			}
		}
		for _, n := range Integrations(m.Content) {
			if !containsFold(uc.Integrations, n) {
				uc.Integrations = append(uc.Integrations, n)
			}
		}
		for _, w := range Workflows(m.Content) {
			if !containsWorkflow(uc.Workflows, w) {
				uc.Workflows = append(uc.Workflows, w)
			}
		}
		if !uc.SecurityRequired && SecurityRequired(m.Content) {
			uc.SecurityRequired = true
		}
	}
	return uc
}

func containsAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// hasToken matches kw in lower when it is not part of a longer word.
func hasToken(lower, kw string) bool {
	for start := 0; ; {
		i := strings.Index(lower[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(kw)
		if (i == 0 || !isWordByte(lower[i-1])) && (end == len(lower) || !isWordByte(lower[end])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b == '+' || b == '#' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsWorkflow(list []types.WorkflowType, w types.WorkflowType) bool {
	for _, v := range list {
		if v == w {
			return true
		}
	}
	return false
}

func cleanNames(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !containsFold(out, s) {
			out = append(out, s)
		}
	}
	return out
}
