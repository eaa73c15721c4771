package attrs

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestSemanticsUpdateNodeUnions(t *testing.T) {
	s := NewSemantics()
	parent, child := "p", "c"
	s.AllocateBlock(parent)
	s.AllocateBlock(child)
	s.Add(child, 0, 1)
	s.Add(child, 1, 2)
	s.Add(child, 1, 3)

	s.UpdateNode(parent, 0, child)
	labels, ok := s.Get(parent, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(labels), test.ShouldEqual, 3)
	_, has1 := labels[1]
	_, has2 := labels[2]
	_, has3 := labels[3]
	test.That(t, has1, test.ShouldBeTrue)
	test.That(t, has2, test.ShouldBeTrue)
	test.That(t, has3, test.ShouldBeTrue)
}

func TestSemanticsWriteReadNodeRoundTrip(t *testing.T) {
	s := NewSemantics()
	key := "k"
	s.AllocateBlock(key)
	s.Add(key, 2, 7)
	s.Add(key, 2, 11)

	var buf bytes.Buffer
	test.That(t, s.WriteNode(&buf, key, 2), test.ShouldBeNil)

	s2 := NewSemantics()
	s2.AllocateBlock(key)
	test.That(t, s2.ReadNode(&buf, key, 2), test.ShouldBeNil)
	labels, _ := s2.Get(key, 2)
	test.That(t, len(labels), test.ShouldEqual, 2)
}

func TestSemanticsIsCollapsible(t *testing.T) {
	s := NewSemantics()
	parent, child := "p", "c"
	s.AllocateBlock(parent)
	s.AllocateBlock(child)
	test.That(t, s.IsCollapsible(parent, 0, child), test.ShouldBeTrue)
	s.Add(child, 0, 9)
	test.That(t, s.IsCollapsible(parent, 0, child), test.ShouldBeFalse)
}
