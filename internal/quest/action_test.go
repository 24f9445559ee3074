package quest

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestActionVerbWireForm(t *testing.T) {
	a := VerbAction(CompleteQuest)

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"CompleteQuest"` {
		t.Errorf("verb wire form = %s, want bare string", data)
	}

	var got Action
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Verb != CompleteQuest {
		t.Errorf("Verb = %q", got.Verb)
	}
	if !got.IsTerminal() {
		t.Error("CompleteQuest should be terminal")
	}
}

func TestActionRejectsUnknownVerb(t *testing.T) {
	var a Action
	if err := json.Unmarshal([]byte(`"ExplodeQuest"`), &a); err == nil {
		t.Fatal("expected error for unknown verb")
	}
}

func TestActionPayloadVariantYAML(t *testing.T) {
	src := `
ItemsGained:
  - Type: torch
    Count: 2
`
	var a Action
	if err := yaml.Unmarshal([]byte(src), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(a.ItemsGained) != 1 || a.ItemsGained[0].Type != "torch" || a.ItemsGained[0].Count != 2 {
		t.Errorf("ItemsGained = %+v", a.ItemsGained)
	}
	if a.Tag() != "ItemsGained" {
		t.Errorf("Tag() = %q", a.Tag())
	}
	if a.IsTerminal() {
		t.Error("payload action should not be terminal")
	}
}

func TestActionJournalEntryLocalized(t *testing.T) {
	src := `{"JournalEntry":{"en-US":"The gate is open.","de-DE":"Das Tor ist offen."}}`
	var a Action
	if err := json.Unmarshal([]byte(src), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.JournalEntry.Get(LocaleEnUS) != "The gate is open." {
		t.Errorf("en-US = %q", a.JournalEntry.Get(LocaleEnUS))
	}

	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), "JournalEntry") {
		t.Errorf("round trip lost tag: %s", out)
	}
}

func TestActionRejectsMultipleKeys(t *testing.T) {
	src := `{"Currency":10,"Experience":20}`
	var a Action
	if err := json.Unmarshal([]byte(src), &a); err == nil {
		t.Fatal("expected error for two-key action")
	}
}

func TestTerminalVerbs(t *testing.T) {
	terminal := []Verb{CompleteQuest, FailQuest, DeclineQuest}
	for _, v := range terminal {
		if !v.IsTerminal() {
			t.Errorf("%s should be terminal", v)
		}
	}
	nonTerminal := []Verb{AcceptQuest, PostponeQuest}
	for _, v := range nonTerminal {
		if v.IsTerminal() {
			t.Errorf("%s should not be terminal", v)
		}
	}
}
