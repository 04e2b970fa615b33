package gvas

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"palworld-save-edit/memory"
)

func TestRoundTrip(t *testing.T) {
	data := mustEncode(sampleDocument())

	first, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(first.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", first.Diagnostics)
	}

	again, err := Encode(first)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Fatalf("encode(decode(x)) differs from x (%d vs %d bytes)", len(again), len(data))
	}

	second, err := Decode(again)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("decode(encode(doc)) differs from doc")
	}
}

func TestRoundTripValues(t *testing.T) {
	doc, err := Decode(mustEncode(sampleDocument()))
	if err != nil {
		t.Fatal(err)
	}
	want := sampleDocument().Root

	for _, name := range []string{"Version", "Exp", "Small", "Title", "Mode", "Display", "Owner", "Saved", "Color", "Counts", "Unlocked", "Passives"} {
		got, _ := doc.Root.Value(name)
		expected, _ := want.Value(name)
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("%s = %#v, want %#v", name, got, expected)
		}
	}

	tagged := doc.Root.Get("Tagged")
	if tagged.Guid == nil || *tagged.Guid != testGuidB {
		t.Errorf("Tagged guid = %v", tagged.Guid)
	}
	if doc.Root.Get("Version").Guid != nil {
		t.Error("Version gained a property guid")
	}

	statusPoints, _ := doc.Root.Value("StatusPoints")
	element, ok := StructTree(statusPoints.(*Array).Elements[0])
	if !ok {
		t.Fatal("StatusPoints element is not a property list")
	}
	if v, _ := element.Value("StatusPoint"); v != Int32(10) {
		t.Errorf("StatusPoint = %#v", v)
	}
}

func TestTruncatedInputNeverSucceeds(t *testing.T) {
	doc := sampleDocument()
	data := mustEncode(doc)
	end := len(data) - len(doc.Trailer)

	for n := 0; n < end; n++ {
		_, err := Decode(data[:n])
		if err == nil {
			t.Fatalf("prefix of %d/%d bytes decoded", n, len(data))
		}
		if kind, _ := KindOf(err); kind != Truncated {
			t.Fatalf("prefix of %d bytes: kind %q (%v)", n, kind, err)
		}
	}

	if _, err := Decode(data[:end]); err != nil {
		t.Errorf("document without trailer: %v", err)
	}
}

func TestSetDropsDuplicates(t *testing.T) {
	tree := NewTree(prop("Unlocked", SetProperty, &Set{
		ElementType: NameProperty,
		Elements:    []Value{Str("A"), Str("B"), Str("A")},
	}))
	data, err := EncodeProperties(tree, "")
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, err := DecodeProperties(data, "")
	if err != nil {
		t.Fatal(err)
	}
	v, _ := decoded.Value("Unlocked")
	if got := v.(*Set).Elements; !reflect.DeepEqual(got, []Value{Str("A"), Str("B")}) {
		t.Errorf("elements = %v", got)
	}
}

func TestEditedTreeReencodes(t *testing.T) {
	doc, err := Decode(mustEncode(sampleDocument()))
	if err != nil {
		t.Fatal(err)
	}

	p, ok := doc.Root.Lookup("SaveParameter.NickName")
	if !ok {
		t.Fatal("SaveParameter.NickName not found")
	}
	p.Value = Str("a much longer nickname than before")
	doc.Root.Set(prop("Version", IntProperty, Int32(43)))
	if !doc.Root.Delete("Hidden") {
		t.Fatal("Hidden was not deleted")
	}

	edited, err := Decode(mustEncode(doc))
	if err != nil {
		t.Fatalf("edited document: %v", err)
	}
	if p, _ := edited.Root.Lookup(".SaveParameter.NickName"); p.Value != Str("a much longer nickname than before") {
		t.Errorf("NickName = %#v", p.Value)
	}
	if v, _ := edited.Root.Value("Version"); v != Int32(43) {
		t.Errorf("Version = %#v", v)
	}
	if edited.Root.Get("Hidden") != nil {
		t.Error("Hidden survived")
	}
	if edited.Root.Names()[0] != "Version" {
		t.Errorf("Set moved Version: %v", edited.Root.Names())
	}
}

func TestEncodeRejectsMismatchedValue(t *testing.T) {
	tree := NewTree(prop("Level", IntProperty, Str("fifteen")))
	if _, err := EncodeProperties(tree, ""); err == nil {
		t.Fatal("expected an error")
	}

	tree = NewTree(prop("Level", "FancyProperty", Int32(1)))
	_, err := EncodeProperties(tree, "")
	if kind, _ := KindOf(err); kind != UnknownPropertyType {
		t.Fatalf("kind = %q (%v)", kind, err)
	}
}

func TestLookup(t *testing.T) {
	root := sampleDocument().Root
	tests := []struct {
		path  string
		found bool
	}{
		{"Version", true},
		{".Version", true},
		{"SaveParameter.Location", true},
		{"SaveParameter.Missing", false},
		{"Version.Nested", false},
		{"Nope", false},
	}
	for _, tt := range tests {
		if _, ok := root.Lookup(tt.path); ok != tt.found {
			t.Errorf("Lookup(%q) = %v, want %v", tt.path, ok, tt.found)
		}
	}
}

func TestTreeJSONKeepsOrder(t *testing.T) {
	tree := NewTree(
		prop("Zeta", IntProperty, Int32(1)),
		prop("Alpha", StrProperty, Str("x")),
		prop("Owner", StructProperty, &Struct{Type: "Guid", Data: testGuidA}),
	)
	out, err := json.Marshal(tree)
	if err != nil {
		t.Fatal(err)
	}
	zeta := bytes.Index(out, []byte(`"Zeta"`))
	alpha := bytes.Index(out, []byte(`"Alpha"`))
	if zeta < 0 || alpha < 0 || zeta > alpha {
		t.Errorf("order lost: %s", out)
	}
	if !bytes.Contains(out, []byte(testGuidA.String())) {
		t.Errorf("guid not rendered as text: %s", out)
	}
}

func TestStoredStringWidthSurvives(t *testing.T) {
	w := memory.NewWriter()
	w.FString("Title")
	w.FString("StrProperty")
	w.U64(11)
	w.U8(0)
	w.FStringEncoded("héllo", memory.Narrow)

	elements := memory.NewWriter()
	elements.U32(2)
	elements.FStringEncoded("Wide", memory.Wide)
	elements.FStringEncoded("", memory.Narrow)

	w.FString("Tags")
	w.FString("ArrayProperty")
	w.U64(uint64(elements.Len()))
	w.FString("NameProperty")
	w.U8(0)
	w.Write(elements.Bytes())
	w.FString("None")

	tree, _, err := DecodeProperties(w.Bytes(), "")
	if err != nil {
		t.Fatal(err)
	}
	title, _ := tree.Value("Title")
	if s, ok := AsString(title); !ok || s != "héllo" {
		t.Errorf("Title = %#v", title)
	}

	out, err := EncodeProperties(tree, "")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, w.Bytes()) {
		t.Errorf("stored widths lost: in %d bytes, out %d bytes", w.Len(), len(out))
	}

	// A replaced value takes the canonical width.
	tree.Get("Title").Value = Str("héllo")
	out, err = EncodeProperties(tree, "")
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, err := DecodeProperties(out, "")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := decoded.Value("Title"); v != Str("héllo") {
		t.Errorf("re-encoded Title = %#v", v)
	}
}

func TestBoolBytesSurvive(t *testing.T) {
	w := memory.NewWriter()
	w.FString("Flag")
	w.FString("BoolProperty")
	w.U64(0)
	w.U8(2)
	w.U8(0)

	w.FString("Flags")
	w.FString("ArrayProperty")
	w.U64(6)
	w.FString("BoolProperty")
	w.U8(0)
	w.U32(2)
	w.U8(1)
	w.U8(7)
	w.FString("None")

	tree, _, err := DecodeProperties(w.Bytes(), "")
	if err != nil {
		t.Fatal(err)
	}
	flag, _ := tree.Value("Flag")
	if b, ok := AsBool(flag); !ok || !b {
		t.Errorf("Flag = %#v", flag)
	}
	flags, _ := tree.Value("Flags")
	if got := flags.(*Array).Elements; !reflect.DeepEqual(got, []Value{Bool(true), BoolByte(7)}) {
		t.Errorf("Flags = %#v", got)
	}

	out, err := EncodeProperties(tree, "")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, w.Bytes()) {
		t.Errorf("bool bytes changed:\n got %v\nwant %v", out, w.Bytes())
	}
}
