package registry

import (
	"errors"
	"testing"

	"github.com/hyperjump/textsim/internal/models"
)

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 5 {
		t.Fatalf("expected 5 models, got %d", len(all))
	}
	if all[0].ID != DefaultModelID {
		t.Errorf("first model: got %s, want %s", all[0].ID, DefaultModelID)
	}
	all[0].Dimensions = 1
	if d, _ := Lookup(DefaultModelID); d.Dimensions != 384 {
		t.Error("All must return a copy")
	}
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("all-mpnet-base-v2")
	if !ok {
		t.Fatal("expected all-mpnet-base-v2 to be registered")
	}
	if d.Dimensions != 768 || d.MaxSeqLength != 384 {
		t.Errorf("unexpected descriptor: %+v", d)
	}
	if d.SpeedTier != models.SpeedSlow || d.AccuracyTier != models.AccuracyExcellent {
		t.Errorf("unexpected tiers: %s/%s", d.SpeedTier, d.AccuracyTier)
	}
	if _, ok := Lookup("bert-base-uncased"); ok {
		t.Error("unexpected hit for unregistered model")
	}
}

func TestResolve(t *testing.T) {
	d, err := Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != DefaultModelID {
		t.Errorf("empty id should resolve to default, got %s", d.ID)
	}
	_, err = Resolve("nope")
	if !errors.Is(err, models.ErrUnknownModel) || !errors.Is(err, models.ErrModelLoad) {
		t.Errorf("expected ErrUnknownModel and ErrModelLoad, got %v", err)
	}
}

func TestIDs(t *testing.T) {
	ids := IDs()
	if len(ids) != 5 || ids[4] != "paraphrase-albert-small-v2" {
		t.Errorf("ids: got %v", ids)
	}
}
