package network

// Node is one person in the network. Nodes are never mutated after load.
type Node struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Department string   `json:"department" yaml:"department"`
	Metrics    *Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}
