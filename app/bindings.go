package app

import "github.com/km-arc/go-bootstrap/framework/container"

// Binding describes one registered key.
type Binding struct {
	Key      string `json:"key"`
	Lifetime string `json:"lifetime"`
	Resolved bool   `json:"resolved"`
}

// Bindings lists every key registered in c, sorted by key.
func Bindings(c *container.Container) []Binding {
	keys := c.Keys()
	out := make([]Binding, 0, len(keys))
	for _, k := range keys {
		lt, _ := c.Lifetime(k)
		out = append(out, Binding{Key: k.String(), Lifetime: lt.String(), Resolved: c.Resolved(k)})
	}
	return out
}
