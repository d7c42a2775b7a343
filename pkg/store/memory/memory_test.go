package memory

import (
	"context"
	"testing"

	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, New())
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := storetest.NewFlow("iso")
	if err := s.Save(ctx, f); err != nil {
		t.Fatal(err)
	}
	f.Graph.AddScreen("late.png")
	f.Graph.Place(1, flow.Position{X: 7, Y: 7})

	got, err := s.Load(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Graph.ScreenCount() != 3 {
		t.Errorf("ScreenCount = %d, want 3", got.Graph.ScreenCount())
	}
	if sc, _ := got.Graph.Screen(1); sc.Pos != (flow.Position{}) {
		t.Errorf("screen 1 at %+v, want origin", sc.Pos)
	}
}
