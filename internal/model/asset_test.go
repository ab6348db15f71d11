package model

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

// pngHeader is a minimal valid PNG signature so MIME sniffing resolves to
// image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestParseAsset_Kinds(t *testing.T) {
	t.Parallel()

	require.Equal(t, Asset{Kind: AssetText}, ParseAsset(""))
	require.Equal(t, Asset{Kind: AssetText, Text: "👋 hello"}, ParseAsset("👋 hello"))
	require.Equal(t, Asset{Kind: AssetRemote, Text: "https://example.com/a.png"},
		ParseAsset("https://example.com/a.png"))
	require.Equal(t, Asset{Kind: AssetRemote, Text: "http://example.com/a.png"},
		ParseAsset("http://example.com/a.png"))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	a := ParseAsset(uri)
	require.Equal(t, AssetImage, a.Kind)
	require.Equal(t, pngHeader, a.Data)
	require.Equal(t, "image/png", a.MIME)
}

func TestParseAsset_BadBase64FallsBackToText(t *testing.T) {
	t.Parallel()

	raw := "data:image/png;base64,!!not-base64!!"
	a := ParseAsset(raw)
	require.Equal(t, AssetText, a.Kind)
	require.Equal(t, raw, a.Text, "raw string must be preserved on decode failure")
	require.Nil(t, a.Data)
}

func TestAsset_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Asset{
		{Kind: AssetText, Text: "🦝"},
		{Kind: AssetRemote, Text: "https://cdn.example.com/bg.jpg"},
		{Kind: AssetImage, Data: pngHeader, MIME: "image/png"},
	}
	for _, want := range cases {
		got := ParseAsset(want.String())
		require.Equal(t, want, got, "round-trip of %s asset", want.Kind)
	}
}
