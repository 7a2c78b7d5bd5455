package procedure

import (
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog failed to load: %v", err)
	}
	if len(c.All()) == 0 {
		t.Fatal("default catalog is empty")
	}
	if _, ok := c.Get("order-inquiry"); !ok {
		t.Fatal("order-inquiry procedure missing")
	}
}

func TestLoadRejectsUnknownClass(t *testing.T) {
	_, err := Load([]byte(`[{"id":"p","name":"P","steps":[{"id":"s","name":"S","class":"sometimes"}]}]`))
	if err == nil {
		t.Fatal("expected error for unknown step class")
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	_, err := Load([]byte(`[{"id":"p","name":"A","steps":[]},{"id":"p","name":"B","steps":[]}]`))
	if err == nil {
		t.Fatal("expected error for duplicate procedure id")
	}
}

func TestDescribeListsStepsInOrder(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	text := c.Describe()
	first := strings.Index(text, "Identify the caller")
	second := strings.Index(text, "Locate the order")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("steps out of order in description:\n%s", text)
	}
}
