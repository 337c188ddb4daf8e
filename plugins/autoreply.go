// Package plugins provides the plugins shipped with the relay
package plugins

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"sync"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/actions"
	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/plugin"
	"github.com/alexandre-normand/chatrelay/store"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	// AutoReplyPluginName holds the identifying name of the autoreply plugin
	AutoReplyPluginName = "autoreply"

	regexPrefix   = "regex:"
	wildcard      = "*"
	imagePrefix   = "BOTIMAGE:"
	keywordsDelim = ","
)

// Configuration keys under plugins.autoreply
const (
	globalRepliesKey       = "global"           // List of replies used in every conversation
	conversationRepliesKey = "conversations"    // Map of conversation id to its list of replies
	tagRepliesKey          = "tags"             // Map of tag to its list of replies
	conversationTagsKey    = "conversationTags" // Map of conversation id to its tags
	disabledKey            = "disabled"         // Conversation ids where autoreplies are turned off
	adminsKey              = "admins"           // Sender ids allowed to add and remove stored replies
)

var eventKinds = map[string]chatrelay.EventKind{
	"MESSAGE": chatrelay.KindMessage,
	"JOIN":    chatrelay.KindJoin,
	"LEAVE":   chatrelay.KindLeave,
	"RENAME":  chatrelay.KindRename,
}

// replyRule is one configured autoreply: either keywords matched against message text or an event kind
type replyRule struct {
	keywords []*regexp.Regexp
	any      bool
	event    *chatrelay.EventKind
	replies  []string
}

func (r replyRule) matches(m *chatrelay.IncomingMessage) bool {
	if r.event != nil {
		return m.Kind == *r.event
	}

	if m.Kind != chatrelay.KindMessage {
		return false
	}

	if r.any {
		return true
	}

	for _, kw := range r.keywords {
		if kw.MatchString(m.NormalizedText) {
			return true
		}
	}

	return false
}

// replyRules holds the compiled rules of one configuration generation
type replyRules struct {
	global        []replyRule
	conversations map[string][]replyRule
	tags          map[string][]replyRule
	convTags      map[string][]string
	disabled      map[string]bool
	admins        map[string]bool
}

// AutoReplier holds the plugin data for the autoreply plugin. It replies to keywords and conversation events
// in internal conversations with the replies found in the configuration and in its storer
type AutoReplier struct {
	chatrelay.Plugin

	v      *viper.Viper
	storer store.StringStorer
	pick   func(n int) int

	mu    sync.RWMutex
	rules replyRules
}

// NewAutoReplier creates a new instance of the autoreply plugin reading its lists from the plugins.autoreply
// section of v. Replies added with commands are persisted in storer
func NewAutoReplier(v *viper.Viper, storer store.StringStorer) (ar *AutoReplier) {
	ar = new(AutoReplier)
	ar.v = v
	ar.storer = storer
	ar.pick = rand.Intn
	ar.Logger = chatrelay.NewSLogger(log.New(io.Discard, "", 0), false)
	ar.reload(v)

	p := plugin.New(AutoReplyPluginName).
		WithHearAction(actions.NewHearAction().
			FromSides(chatrelay.Internal).
			WithMatcher(ar.matchConversation).
			WithUsage("say something that includes a keyword").
			WithDescription("Reply to configured keywords and conversation events").
			WithAnswerer(ar.reply).
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchVerb("autoreply add")).
			WithUsage("autoreply add <keyword>[,<keyword>...] => <reply>").
			WithDescription("Store a reply to keywords, used in every conversation").
			WithAnswerer(ar.addStoredReply).
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchVerb("autoreply remove")).
			WithUsage("autoreply remove <keyword>[,<keyword>...]").
			WithDescription("Forget a stored reply").
			WithAnswerer(ar.removeStoredReply).
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchVerb("autoreply list")).
			WithUsage("autoreply list").
			WithDescription("List stored replies").
			WithAnswerer(ar.listStoredReplies).
			Build()).
		Build()

	ar.Name = p.Name
	ar.Commands = p.Commands
	ar.HearActions = p.HearActions

	return ar
}

// Watch reloads the lists every time the configuration file changes
func (ar *AutoReplier) Watch() {
	config.WatchConfig(ar.v, ar.reload)
}

func (ar *AutoReplier) reload(v *viper.Viper) {
	rules := replyRules{
		conversations: make(map[string][]replyRule),
		tags:          make(map[string][]replyRule),
		convTags:      make(map[string][]string),
		disabled:      make(map[string]bool),
		admins:        make(map[string]bool),
	}

	root := config.PluginsKey + "." + AutoReplyPluginName
	rules.global = ar.compileRules(v.Get(root + "." + globalRepliesKey))

	for id, raw := range cast.ToStringMap(v.Get(root + "." + conversationRepliesKey)) {
		rules.conversations[strings.ToLower(id)] = ar.compileRules(raw)
	}

	for tag, raw := range cast.ToStringMap(v.Get(root + "." + tagRepliesKey)) {
		rules.tags[strings.ToLower(tag)] = ar.compileRules(raw)
	}

	for id, raw := range cast.ToStringMap(v.Get(root + "." + conversationTagsKey)) {
		rules.convTags[strings.ToLower(id)] = cast.ToStringSlice(raw)
	}

	for _, id := range config.GetStringSlice(v, root+"."+disabledKey) {
		rules.disabled[strings.ToLower(id)] = true
	}

	for _, id := range config.GetStringSlice(v, root+"."+adminsKey) {
		rules.admins[id] = true
	}

	ar.mu.Lock()
	ar.rules = rules
	ar.mu.Unlock()

	ar.Logger.Debugf("[%s] Loaded [%d] global and [%d] conversation reply lists", AutoReplyPluginName, len(rules.global), len(rules.conversations))
}

// compileRules compiles a list of entries, each a map with either keywords or an event along with a reply
// that is a single string or a list to pick from. Invalid entries are logged and skipped
func (ar *AutoReplier) compileRules(raw interface{}) (rules []replyRule) {
	entries, err := cast.ToSliceE(raw)
	if err != nil {
		ar.Logger.Printf("[%s] Ignoring invalid reply list: %v", AutoReplyPluginName, err)
		return nil
	}

	rules = make([]replyRule, 0, len(entries))
	for _, e := range entries {
		entry := cast.ToStringMap(e)

		rule, err := newReplyRule(cast.ToStringSlice(entry["keywords"]), cast.ToString(entry["event"]), toReplies(entry["reply"]))
		if err != nil {
			ar.Logger.Printf("[%s] Ignoring reply entry %v: %v", AutoReplyPluginName, e, err)
			continue
		}

		rules = append(rules, rule)
	}

	return rules
}

func newReplyRule(keywords []string, event string, replies []string) (rule replyRule, err error) {
	if len(replies) == 0 {
		return rule, fmt.Errorf("missing reply")
	}

	rule.replies = replies

	if event != "" {
		kind, ok := eventKinds[strings.ToUpper(event)]
		if !ok {
			return rule, fmt.Errorf("unknown event [%s]", event)
		}

		rule.event = &kind
		return rule, nil
	}

	if len(keywords) == 0 {
		return rule, fmt.Errorf("missing keywords or event")
	}

	for _, kw := range keywords {
		if kw == wildcard {
			rule.any = true
			continue
		}

		re, err := keywordRegexp(kw)
		if err != nil {
			return rule, err
		}

		rule.keywords = append(rule.keywords, re)
	}

	return rule, nil
}

// keywordRegexp returns the case-insensitive regexp matching the keyword as a whole word. Keywords prefixed
// with regex: are used as raw expressions
func keywordRegexp(keyword string) (*regexp.Regexp, error) {
	expr := regexp.QuoteMeta(keyword)
	if strings.HasPrefix(keyword, regexPrefix) {
		expr = strings.TrimPrefix(keyword, regexPrefix)
	}

	return regexp.Compile(`(?i)(?:^|[^\pL\pN_])(?:` + expr + `)(?:[^\pL\pN_]|$)`)
}

func toReplies(raw interface{}) []string {
	switch r := raw.(type) {
	case nil:
		return nil
	case string:
		if r == "" {
			return nil
		}

		return []string{r}
	}

	return cast.ToStringSlice(raw)
}

// matchConversation returns true for messages seen on conversations that don't have autoreplies disabled
func (ar *AutoReplier) matchConversation(m *chatrelay.IncomingMessage) bool {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	return !ar.rules.disabled[strings.ToLower(m.Origin.ID)]
}

// reply walks the conversation list, the lists of the conversation tags and then the global list, stopping
// at the first list with a matching rule
func (ar *AutoReplier) reply(m *chatrelay.IncomingMessage) *chatrelay.Answer {
	ar.mu.RLock()
	rules := ar.rules
	ar.mu.RUnlock()

	convID := strings.ToLower(m.Origin.ID)
	lists := [][]replyRule{rules.conversations[convID]}
	for _, tag := range rules.convTags[convID] {
		lists = append(lists, rules.tags[strings.ToLower(tag)])
	}

	global := make([]replyRule, 0, len(rules.global))
	lists = append(lists, append(append(global, rules.global...), ar.storedRules()...))

	for _, list := range lists {
		for _, rule := range list {
			if rule.matches(m) {
				return ar.answer(m, rule.replies[ar.pick(len(rule.replies))])
			}
		}
	}

	return nil
}

func (ar *AutoReplier) answer(m *chatrelay.IncomingMessage, reply string) *chatrelay.Answer {
	text := strings.NewReplacer(
		"{conv_title}", m.SourceTitle,
		"{participants_namelist}", strings.Join(m.Participants, ", "),
		"{user}", m.SenderDisplayName).Replace(reply)

	if strings.HasPrefix(text, imagePrefix) {
		url := strings.TrimSpace(strings.TrimPrefix(text, imagePrefix))
		if !strings.HasPrefix(url, "http") {
			ar.Logger.Printf("[%s] Ignoring image reply [%s], only http urls are supported", AutoReplyPluginName, url)
			return nil
		}

		return &chatrelay.Answer{ImageURL: url}
	}

	return &chatrelay.Answer{Text: text}
}

func matchVerb(verb string) chatrelay.Matcher {
	return func(m *chatrelay.IncomingMessage) bool {
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.NormalizedText)), verb)
	}
}
