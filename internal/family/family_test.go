package family

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cupid-bot/internal/models"
	"go.uber.org/zap"
)

func TestBuildDOT(t *testing.T) {
	ann := models.User{ID: 1, Name: "Ann"}
	ben := models.User{ID: 2, Name: `Ben "the Bold"`}
	cat := models.User{ID: 3, Name: "Cat"}
	dan := models.User{ID: 4, Name: "Dan"}

	got := BuildDOT(models.Graph{
		Users: []models.User{dan, ben, cat, ann},
		Relationships: []models.Relationship{
			{Initiator: ann, Other: ben, Kind: models.Marriage, Accepted: true},
			{Initiator: ann, Other: cat, Kind: models.Adoption, Accepted: true},
			{Initiator: ann, Other: dan, Kind: models.Adoption, Accepted: true},
		},
	})

	want := `graph {
	graph [bgcolor="#36393f" splines=ortho]
	node [fontcolor="#ffffff" fontname="Roboto,Helvetica,sans-serif" shape=none]
	edge [penwidth=5]
	1 [label="Ann"]
	2 [label="Ben \"the Bold\""]
	3 [label="Cat"]
	4 [label="Dan"]
	1 -- 2 [color="#eb459e"]
	{ rank=same; 1; 2; }
	1 -- 3 [color="#404eed"]
	1 -- 4 [color="#404eed"]
	{ rank=same; 3; 4; }
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildDOT mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDOTEmpty(t *testing.T) {
	got := BuildDOT(models.Graph{})
	assert.Contains(t, got, "graph {\n")
	assert.NotContains(t, got, "--")
}

func TestRenderMissingBinary(t *testing.T) {
	r := NewRenderer("definitely-not-graphviz", zap.NewNop())
	assert.False(t, r.Available())
	_, err := r.Render(context.Background(), "graph {}")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRender(t *testing.T) {
	r := NewRenderer("", zap.NewNop())
	if !r.Available() {
		t.Skip("graphviz is not installed")
	}
	png, err := r.Render(context.Background(), BuildDOT(models.Graph{Users: []models.User{{ID: 1, Name: "Ann"}}}))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
