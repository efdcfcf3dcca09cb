// Package family draws the relationship graph as a family tree.
package family

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/xaenox/cupid-bot/internal/models"
	"go.uber.org/zap"
)

const (
	marriageColour = "#eb459e"
	adoptionColour = "#404eed"
)

var ErrUnavailable = errors.New("family: graphviz is not installed")

// BuildDOT describes graph in the Graphviz DOT language. Spouses are drawn
// side by side, and so are the children of each parent.
func BuildDOT(graph models.Graph) string {
	var b strings.Builder
	b.WriteString("graph {\n")
	b.WriteString("\tgraph [bgcolor=\"#36393f\" splines=ortho]\n")
	b.WriteString("\tnode [fontcolor=\"#ffffff\" fontname=\"Roboto,Helvetica,sans-serif\" shape=none]\n")
	b.WriteString("\tedge [penwidth=5]\n")

	users := append([]models.User(nil), graph.Users...)
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	for _, u := range users {
		fmt.Fprintf(&b, "\t%d [label=%s]\n", u.ID, quote(u.Name))
	}

	children := make(map[int64][]int64)
	var parents []int64
	for _, rel := range graph.Relationships {
		colour := adoptionColour
		if rel.Kind == models.Marriage {
			colour = marriageColour
		}
		fmt.Fprintf(&b, "\t%d -- %d [color=%s]\n", rel.Initiator.ID, rel.Other.ID, quote(colour))

		if rel.Kind == models.Marriage {
			sameRank(&b, rel.Initiator.ID, rel.Other.ID)
			continue
		}
		if _, ok := children[rel.Initiator.ID]; !ok {
			parents = append(parents, rel.Initiator.ID)
		}
		children[rel.Initiator.ID] = append(children[rel.Initiator.ID], rel.Other.ID)
	}
	for _, parent := range parents {
		sameRank(&b, children[parent]...)
	}

	b.WriteString("}\n")
	return b.String()
}

func sameRank(b *strings.Builder, ids ...int64) {
	b.WriteString("\t{ rank=same;")
	for _, id := range ids {
		b.WriteString(" " + strconv.FormatInt(id, 10) + ";")
	}
	b.WriteString(" }\n")
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ").Replace(s) + `"`
}

// Renderer turns DOT source into a PNG with the Graphviz dot binary.
type Renderer struct {
	binary string
	logger *zap.Logger
}

// NewRenderer uses binary, or "dot" from PATH when binary is empty.
func NewRenderer(binary string, logger *zap.Logger) *Renderer {
	if binary == "" {
		binary = "dot"
	}
	return &Renderer{binary: binary, logger: logger}
}

// Available reports whether the dot binary can be found.
func (r *Renderer) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

func (r *Renderer) Render(ctx context.Context, dot string) ([]byte, error) {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-Tpng")
	cmd.Stdin = strings.NewReader(dot)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		r.logger.Error("Graphviz failed", zap.Error(err), zap.String("stderr", stderr.String()))
		return nil, fmt.Errorf("family: render: %w", err)
	}
	return stdout.Bytes(), nil
}
