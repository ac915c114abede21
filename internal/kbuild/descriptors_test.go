package kbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenDescriptor_DepFile(t *testing.T) {
	in := "/build/out/foo.ko: /build/out/bar.ko /build/out/baz.ko\n"
	out := FlattenDescriptor(in)
	assert.Equal(t, "foo.ko: bar.ko baz.ko\n", out)
}

func TestFlattenDescriptor_RelativePaths(t *testing.T) {
	in := "kernel/drivers/gpu/panfrost.ko: kernel/base/dep.ko\n"
	out := FlattenDescriptor(in)
	assert.Equal(t, "panfrost.ko: dep.ko\n", out)
}

func TestFlattenDescriptor_Idempotent(t *testing.T) {
	flat := "foo.ko: bar.ko baz.ko\nqux.ko:\n"
	assert.Equal(t, flat, FlattenDescriptor(flat))
	assert.Equal(t, FlattenDescriptor(flat), FlattenDescriptor(FlattenDescriptor(flat)))
}

func TestFlattenDescriptor_PreservesComments(t *testing.T) {
	in := "# This file is   generated by depmod -- do not edit /with/paths\nkernel/foo.ko:\n"
	out := FlattenDescriptor(in)
	assert.Equal(t, "# This file is   generated by depmod -- do not edit /with/paths\nfoo.ko:\n", out)
}

func TestFlattenDescriptor_OrderFile(t *testing.T) {
	in := "kernel/drivers/a.ko\nkernel/drivers/deep/nested/b.ko\n"
	assert.Equal(t, "a.ko\nb.ko\n", FlattenDescriptor(in))
}

func TestFlattenDescriptor_AliasFile(t *testing.T) {
	// Alias lines have no paths and must come through untouched.
	in := "alias usb:v1D6Bp0001* usbcore\n"
	assert.Equal(t, in, FlattenDescriptor(in))
}

func TestFlattenDescriptor_BlankLines(t *testing.T) {
	in := "a/x.ko:\n\nb/y.ko:\n"
	assert.Equal(t, "x.ko:\n\ny.ko:\n", FlattenDescriptor(in))
}
