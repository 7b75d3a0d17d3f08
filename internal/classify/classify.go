// Package classify decides what kind of clip a clipboard snapshot holds and
// derives its label. Everything here is a pure function of the snapshot.
package classify

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/store"
)

// imageDataPrefix starts every image clip's contents.
const imageDataPrefix = "data:image/png;base64,"

// Result is the classification of one snapshot.
type Result struct {
	Label    string
	Contents string
	Kind     store.Kind
}

// Empty reports whether the result carries nothing worth recording.
func (r Result) Empty() bool {
	return r.Label == ""
}

// Clip turns the result into a new clip with a fresh ID.
func (r Result) Clip() store.Clip {
	return store.NewClip(r.Label, r.Contents, r.Kind)
}

// Classify applies the fixed precedence image > html > text, then lets the
// source-editor format override the kind to code.
func Classify(snap clipboard.Snapshot) Result {
	res := Result{
		Label:    snap.Text,
		Contents: snap.Text,
		Kind:     store.KindText,
	}

	switch {
	case snap.Has(clipboard.FormatImage) && len(snap.Image) > 0:
		res.Label = ImageLabel(snap.Image)
		res.Contents = EncodeImage(snap.Image)
		res.Kind = store.KindImage
	case snap.Has(clipboard.FormatHTML):
		res.Contents = snap.HTML
		res.Kind = store.KindHTML
	}

	if snap.Has(clipboard.FormatCode) {
		res.Kind = store.KindCode
		res.Contents = snap.Text
	}

	return res
}

// Key returns the label Classify would assign, without encoding image data.
// It is the watcher's change-detection key.
func Key(snap clipboard.Snapshot) string {
	if snap.Has(clipboard.FormatImage) && len(snap.Image) > 0 {
		return ImageLabel(snap.Image)
	}
	return snap.Text
}

// ImageLabel generates the synthetic filename for an image. The same bytes
// always produce the same name.
func ImageLabel(png []byte) string {
	sum := sha256.Sum256(png)
	return fmt.Sprintf("image-%s.png", hex.EncodeToString(sum[:4]))
}

// EncodeImage encodes PNG bytes as a self-describing data string.
func EncodeImage(png []byte) string {
	return imageDataPrefix + base64.StdEncoding.EncodeToString(png)
}

// DecodeImage reverses EncodeImage.
func DecodeImage(contents string) ([]byte, error) {
	payload, ok := strings.CutPrefix(contents, imageDataPrefix)
	if !ok {
		return nil, fmt.Errorf("not a png data string")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return data, nil
}
