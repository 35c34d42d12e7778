package datapackage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

func bigGame(checksum string, n int) wire.GameData {
	gd := wire.GameData{
		Checksum:         checksum,
		ItemNameToID:     make(map[string]int64, n),
		LocationNameToID: make(map[string]int64, n),
	}
	for i := 0; i < n; i++ {
		gd.ItemNameToID[fmt.Sprintf("Progressive Sword %d", i)] = int64(1000 + i)
		gd.LocationNameToID[fmt.Sprintf("Chest in Room %d", i)] = int64(5000 + i)
	}
	return gd
}

func TestPutGet(t *testing.T) {
	c := New()
	if err := c.Put("Clique", wire.GameData{
		Checksum:         "abc",
		ItemNameToID:     map[string]int64{"Feeling of Satisfaction": 69696969},
		LocationNameToID: map[string]int64{"The Big Red Button": 69696969},
	}); err != nil {
		t.Fatalf("put: %v", err)
	}

	gd, ok := c.Get("Clique", "abc")
	if !ok {
		t.Fatal("expected hit")
	}
	if gd.ItemNameToID["Feeling of Satisfaction"] != 69696969 {
		t.Errorf("item table: got %v", gd.ItemNameToID)
	}
	if _, ok := c.Get("Clique", "other"); ok {
		t.Error("stale checksum should miss")
	}
	if _, ok := c.Get("Other", "abc"); ok {
		t.Error("unknown game should miss")
	}
}

func TestLargeEntriesCompressed(t *testing.T) {
	c := New()
	gd := bigGame("big", 500)
	if err := c.Put("Big", gd); err != nil {
		t.Fatalf("put: %v", err)
	}
	games, stored, raw := c.Stats()
	if games != 1 {
		t.Fatalf("games: got %d, want 1", games)
	}
	if stored >= raw {
		t.Errorf("stored %d bytes, raw %d: expected compression", stored, raw)
	}

	got, ok := c.Get("Big", "big")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got.ItemNameToID) != 500 || got.LocationNameToID["Chest in Room 499"] != 5499 {
		t.Errorf("round trip lost data: %d items", len(got.ItemNameToID))
	}
}

func TestStoreAndOutdated(t *testing.T) {
	c := New()
	err := c.Store(&wire.DataPackage{Data: wire.DataPackageData{Games: map[string]wire.GameData{
		"A": {Checksum: "a1"},
		"B": {Checksum: "b1"},
	}}})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	room := &wire.RoomInfo{
		Games:                []string{"A", "B", "C", "A"},
		DatapackageChecksums: map[string]string{"A": "a1", "B": "b2", "C": "c1"},
	}
	got := c.Outdated(room)
	want := []string{"B", "C"}
	if len(got) != len(want) {
		t.Fatalf("outdated: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outdated[%d]: got %s, want %s", i, got[i], want[i])
		}
	}

	sums := c.Checksums()
	if sums["A"] != "a1" || sums["B"] != "b1" {
		t.Errorf("checksums: got %v", sums)
	}
}

func TestNames(t *testing.T) {
	c := New()
	c.Put("Big", bigGame("x", 3))
	items, locations, ok := c.Names("Big")
	if !ok {
		t.Fatal("expected names")
	}
	if items[1002] != "Progressive Sword 2" {
		t.Errorf("item 1002: got %q", items[1002])
	}
	if locations[5000] != "Chest in Room 0" {
		t.Errorf("location 5000: got %q", locations[5000])
	}
	if _, _, ok := c.Names("Missing"); ok {
		t.Error("unknown game should report !ok")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			game := fmt.Sprintf("G%d", i)
			c.Put(game, bigGame(game, 50))
			if _, ok := c.Get(game, game); !ok {
				t.Errorf("%s: miss after put", game)
			}
			c.Checksums()
		}(i)
	}
	wg.Wait()
	if games, _, _ := c.Stats(); games != 8 {
		t.Errorf("games: got %d, want 8", games)
	}
}
