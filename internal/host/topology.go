package host

import (
	"github.com/Iron-Ham/polycephaly/internal/config"
	"github.com/Iron-Ham/polycephaly/internal/mailbox"
)

// Routing modes reported by Describe.
const (
	RoutingHub    = "hub"
	RoutingViaHub = "via hub"
)

// Node describes one configured process.
type Node struct {
	Name        string
	MailboxSize int
	Routing     string
	Heartbeat   string
	Peers       []string
}

// Describe lists the processes of cfg with their effective mailbox size and
// how their outgoing peer traffic is routed. It does not validate cfg.
func Describe(cfg *config.Config) []Node {
	defaultSize := cfg.Messenger.MailboxSize
	if defaultSize < 1 {
		defaultSize = mailbox.DefaultCapacity
	}

	nodes := make([]Node, 0, len(cfg.Processes))
	for _, spec := range cfg.Processes {
		n := Node{
			Name:        spec.Name,
			MailboxSize: spec.MailboxSize,
			Routing:     RoutingViaHub,
			Heartbeat:   "off",
			Peers:       spec.Peers,
		}
		if n.MailboxSize < 1 {
			n.MailboxSize = defaultSize
		}
		if spec.Name == cfg.Messenger.MainProcess {
			n.Routing = RoutingHub
		}
		if spec.HeartbeatIntervalMs > 0 && len(spec.Peers) > 0 {
			n.Heartbeat = spec.HeartbeatInterval().String()
		}
		nodes = append(nodes, n)
	}
	return nodes
}
