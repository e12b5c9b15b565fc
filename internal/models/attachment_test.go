package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentListValue(t *testing.T) {
	// Arrange
	list := AttachmentList{
		{Filename: "report.pdf", Path: "/tmp/report.pdf", Size: 1024},
	}

	// Act
	value, err := list.Value()

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `[{"filename":"report.pdf","path":"/tmp/report.pdf","size":1024}]`, string(value.([]byte)))
}

func TestAttachmentListValue_Nil(t *testing.T) {
	// Act
	var list AttachmentList
	value, err := list.Value()

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(value.([]byte)))
}

func TestAttachmentListScan(t *testing.T) {
	// Arrange
	var list AttachmentList

	// Act
	err := list.Scan([]byte(`[{"filename":"a.txt","path":"/tmp/a.txt","size":7}]`))

	// Assert
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.txt", list[0].Filename)
	assert.Equal(t, int64(7), list[0].Size)
}

func TestAttachmentListScan_Nil(t *testing.T) {
	// Arrange
	var list AttachmentList

	// Act
	err := list.Scan(nil)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAttachmentListScan_UnsupportedType(t *testing.T) {
	// Arrange
	var list AttachmentList

	// Act
	err := list.Scan(42)

	// Assert
	require.Error(t, err)
}
