package plugins

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/store"
)

var (
	addReplyRegex    = regexp.MustCompile(`(?i)\Aautoreply add (.+?)\s*=>\s*(.+)\z`)
	removeReplyRegex = regexp.MustCompile(`(?i)\Aautoreply remove (.+)\z`)
)

// storedRules returns the rules for replies added with commands. Stored keys are comma-delimited keywords
func (ar *AutoReplier) storedRules() (rules []replyRule) {
	entries, err := ar.storer.Scan()
	if err != nil {
		ar.Logger.Printf("[%s] Error loading stored replies: %v", AutoReplyPluginName, err)
		return nil
	}

	keys := sortedKeys(entries)
	rules = make([]replyRule, 0, len(keys))
	for _, k := range keys {
		rule, err := newReplyRule(strings.Split(k, keywordsDelim), "", []string{entries[k]})
		if err != nil {
			ar.Logger.Printf("[%s] Ignoring stored reply on [%s]: %v", AutoReplyPluginName, k, err)
			continue
		}

		rules = append(rules, rule)
	}

	return rules
}

func (ar *AutoReplier) isAdmin(m *chatrelay.IncomingMessage) bool {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	return ar.rules.admins[m.SenderPlatformID]
}

// addStoredReply adds or replaces the reply to a set of keywords
func (ar *AutoReplier) addStoredReply(m *chatrelay.IncomingMessage) *chatrelay.Answer {
	if !ar.isAdmin(m) {
		return &chatrelay.Answer{Text: "Sorry, only admins can add autoreplies"}
	}

	matches := addReplyRegex.FindStringSubmatch(strings.TrimSpace(m.NormalizedText))
	if matches == nil {
		return &chatrelay.Answer{Text: "Usage: `autoreply add <keyword>[,<keyword>...] => <reply>`"}
	}

	keywords := encodeKeywords(matches[1])
	reply := strings.TrimSpace(matches[2])
	if _, err := newReplyRule(strings.Split(keywords, keywordsDelim), "", []string{reply}); err != nil {
		return &chatrelay.Answer{Text: fmt.Sprintf("Invalid keywords [`%s`]: %v", keywords, err)}
	}

	answerMsg := fmt.Sprintf("Registered new autoreply [`%s` => `%s`]", keywords, reply)
	if existing, err := ar.storer.GetString(keywords); err == nil {
		answerMsg = fmt.Sprintf("Replaced autoreply for [`%s`] with [`%s`] (was [`%s`] previously)", keywords, reply, existing)
	} else if !store.IsNotFound(err) {
		ar.Logger.Printf("[%s] Error loading autoreply [%s]: %v", AutoReplyPluginName, keywords, err)
	}

	if err := ar.storer.PutString(keywords, reply); err != nil {
		answerMsg = fmt.Sprintf("Error persisting autoreply [`%s` => `%s`]: `%s`", keywords, reply, err.Error())
		ar.Logger.Printf("[%s] %s", AutoReplyPluginName, answerMsg)

		return &chatrelay.Answer{Text: answerMsg}
	}

	ar.Logger.Debugf("[%s] %s", AutoReplyPluginName, answerMsg)
	return &chatrelay.Answer{Text: answerMsg}
}

// removeStoredReply deletes the reply to a set of keywords
func (ar *AutoReplier) removeStoredReply(m *chatrelay.IncomingMessage) *chatrelay.Answer {
	if !ar.isAdmin(m) {
		return &chatrelay.Answer{Text: "Sorry, only admins can remove autoreplies"}
	}

	matches := removeReplyRegex.FindStringSubmatch(strings.TrimSpace(m.NormalizedText))
	if matches == nil {
		return &chatrelay.Answer{Text: "Usage: `autoreply remove <keyword>[,<keyword>...]`"}
	}

	keywords := encodeKeywords(matches[1])
	existing, err := ar.storer.GetString(keywords)
	if store.IsNotFound(err) {
		return &chatrelay.Answer{Text: fmt.Sprintf("No autoreply found on `%s`", keywords)}
	} else if err != nil {
		return &chatrelay.Answer{Text: fmt.Sprintf("Error loading autoreply [`%s`]: `%s`", keywords, err.Error())}
	}

	if err = ar.storer.DeleteString(keywords); err != nil {
		answerMsg := fmt.Sprintf("Error removing autoreply [`%s` => `%s`]: `%s`", keywords, existing, err.Error())
		ar.Logger.Printf("[%s] %s", AutoReplyPluginName, answerMsg)

		return &chatrelay.Answer{Text: answerMsg}
	}

	return &chatrelay.Answer{Text: fmt.Sprintf("Deleted autoreply [`%s` => `%s`]", keywords, existing)}
}

// listStoredReplies renders stored replies in a table
func (ar *AutoReplier) listStoredReplies(m *chatrelay.IncomingMessage) *chatrelay.Answer {
	entries, err := ar.storer.Scan()
	if err != nil {
		ar.Logger.Printf("[%s] Error loading stored replies: %v", AutoReplyPluginName, err)
		return &chatrelay.Answer{Text: fmt.Sprintf("Error loading autoreplies:\n```%s```", err.Error())}
	}

	if len(entries) == 0 {
		return &chatrelay.Answer{Text: "No stored autoreplies"}
	}

	return &chatrelay.Answer{Text: "Here are the stored autoreplies: \n" + formatReplies(entries)}
}

// encodeKeywords normalizes a comma-delimited keyword list to the form it's stored under
func encodeKeywords(raw string) string {
	keywords := make([]string, 0)
	for _, kw := range strings.Split(raw, keywordsDelim) {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return strings.Join(keywords, keywordsDelim)
}

func sortedKeys(entries map[string]string) (keys []string) {
	keys = make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func formatReplies(entries map[string]string) string {
	var b bytes.Buffer
	w := new(tabwriter.Writer)
	bufw := bufio.NewWriter(&b)
	w.Init(bufw, 5, 0, 1, ' ', 0)
	for _, k := range sortedKeys(entries) {
		fmt.Fprintf(w, "\t∙ `%s`\t=> `%s`\n", k, entries[k])
	}
	fmt.Fprintf(w, "\n")

	w.Flush()
	bufw.Flush()
	return b.String()
}
