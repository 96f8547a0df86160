// Package testutil provides fixture data shared by package tests and the
// CLI's `seed` subcommand, grounded in the reference implementation's own
// benchmark/demo fixture: three people and their family relationships,
// plus one contact-info edge to an email address node.
package testutil

import "github.com/gqlite/gqlite/pkg/graph"

// SeedFixture populates g with the worked example used throughout the
// query-language scenarios: Mark, Alex and Felipe (label Person), one
// Email node, and the FRIEND/UNCLE/COUSIN/CONTACT_INFO edges among them.
func SeedFixture(g *graph.Graph) error {
	nodes := []struct{ id, label string }{
		{"Mark", "Person"},
		{"Alex", "Person"},
		{"Felipe", "Person"},
		{"research@felipebonetto.com", "Email"},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.id, n.label); err != nil {
			return err
		}
	}

	edges := []struct{ from, edgeType, to string }{
		{"Mark", "FRIEND", "Alex"},
		{"Mark", "FRIEND", "Felipe"},
		{"Alex", "FRIEND", "Felipe"},
		{"Felipe", "UNCLE", "Mark"},
		{"Felipe", "COUSIN", "Alex"},
		{"Felipe", "CONTACT_INFO", "research@felipebonetto.com"},
	}
	for _, e := range edges {
		if err := g.AddEdge(e.from, e.edgeType, e.to); err != nil {
			return err
		}
	}
	return nil
}
