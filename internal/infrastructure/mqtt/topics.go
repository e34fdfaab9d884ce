package mqtt

import (
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "webstone"

// Topic categories. A block topic is {prefix}/{category}/{id}.
const (
	CategoryCommand    = "command"
	CategoryState      = "state"
	CategoryRegister   = "register"
	CategoryUnregister = "unregister"
	CategoryAdvisory   = "advisory"
	CategoryAdmin      = "admin"
)

// Admin actions. An owner action topic is {prefix}/admin/{ownerId}/{action};
// clear has no owner and is {prefix}/admin/clear.
const (
	ActionSetPassphrase      = "setpass"
	ActionGeneratePassphrase = "genpass"
	ActionContext            = "context"
	ActionClear              = "clear"
)

// Topics builds the topic names used between the server and the host.
//
//	topics := mqtt.NewTopics("webstone")
//	topics.Command("6f1c...")   // "webstone/command/6f1c..."
type Topics struct {
	prefix string
}

// NewTopics returns builders for prefix. Surrounding slashes are trimmed and
// an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic prefix without a trailing slash.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

func (t Topics) join(parts ...string) string {
	return t.Prefix() + "/" + strings.Join(parts, "/")
}

// Command is the topic the server publishes power commands for blockID on.
func (t Topics) Command(blockID string) string {
	return t.join(CategoryCommand, blockID)
}

// State is the topic the host reports a block's state on.
func (t Topics) State(blockID string) string {
	return t.join(CategoryState, blockID)
}

// Register is the topic the host announces a newly placed block on.
func (t Topics) Register(blockID string) string {
	return t.join(CategoryRegister, blockID)
}

// Unregister is the topic the host announces a removed block on.
func (t Topics) Unregister(blockID string) string {
	return t.join(CategoryUnregister, blockID)
}

// Advisory is the topic user-facing messages for ownerID are published on.
func (t Topics) Advisory(ownerID string) string {
	return t.join(CategoryAdvisory, ownerID)
}

// SystemStatus is the retained online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.join("system", "status")
}

// AllStates matches every State topic.
func (t Topics) AllStates() string {
	return t.join(CategoryState, "+")
}

// AllRegistrations matches every Register topic.
func (t Topics) AllRegistrations() string {
	return t.join(CategoryRegister, "+")
}

// AllUnregistrations matches every Unregister topic.
func (t Topics) AllUnregistrations() string {
	return t.join(CategoryUnregister, "+")
}

// Admin is the topic the host sends action for ownerID on.
func (t Topics) Admin(ownerID, action string) string {
	return t.join(CategoryAdmin, ownerID, action)
}

// AdminClear is the topic that drops every registry.
func (t Topics) AdminClear() string {
	return t.join(CategoryAdmin, ActionClear)
}

// AllAdmin matches every admin topic.
func (t Topics) AllAdmin() string {
	return t.join(CategoryAdmin, "#")
}

// ParseAdmin splits an admin topic into its owner and action. ownerID is
// empty for clear.
func (t Topics) ParseAdmin(topic string) (ownerID, action string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.join(CategoryAdmin, ""))
	if !found {
		return "", "", false
	}
	if rest == ActionClear {
		return "", ActionClear, true
	}
	ownerID, action, found = strings.Cut(rest, "/")
	if !found || ownerID == "" || action == "" || strings.Contains(action, "/") {
		return "", "", false
	}
	return ownerID, action, true
}

// Parse splits a block topic into its category and id. It reports false when
// topic is not of the form {prefix}/{category}/{id}.
func (t Topics) Parse(topic string) (category, id string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix()+"/")
	if !found {
		return "", "", false
	}
	category, id, found = strings.Cut(rest, "/")
	if !found || category == "" || id == "" || strings.Contains(id, "/") {
		return "", "", false
	}
	return category, id, true
}
