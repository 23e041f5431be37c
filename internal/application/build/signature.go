package build

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"scriptdex/internal/adapter/outbound/corpus"
	vo "scriptdex/internal/domain/valueobject"
	"scriptdex/internal/port/outbound"
)

// stepInputs is what a step reads besides the scripts namespace.
type stepInputs struct {
	toolVersion  string
	images       []byte
	tagOverrides []byte
}

// collectInputs gathers the non-script inputs of a build. Atlas files are hashed in path
// order so the images part is independent of load order.
func collectInputs(view outbound.CorpusView, toolVersion string, tagOverrides []byte) stepInputs {
	h := sha256.New()
	for _, p := range view.Files() {
		if !strings.HasPrefix(p, corpus.ImagesPrefix) {
			continue
		}
		data, _ := view.Read(p)
		writeRecord(h, p, data)
	}
	return stepInputs{
		toolVersion:  toolVersion,
		images:       h.Sum(nil),
		tagOverrides: tagOverrides,
	}
}

// signature hashes the inputs s depends on: tool version, schema version, the atlas files
// when the step runs the icons extractor, and the tag overrides when it classifies items.
func (in stepInputs) signature(s Step) string {
	h := sha256.New()
	writeRecord(h, "tool", []byte(in.toolVersion))
	writeRecord(h, "schema", []byte(strconv.Itoa(s.Schema)))
	for _, k := range s.Kinds {
		if k == vo.ExtractorIcons {
			writeRecord(h, "images", in.images)
			break
		}
	}
	if s.TagOverrides {
		writeRecord(h, "tag_overrides", in.tagOverrides)
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// signatures maps every artifact a step writes to the step's signature.
func (in stepInputs) signatures(table []Step) map[string]string {
	out := make(map[string]string)
	for _, s := range table {
		if s.HashFrom == "" {
			continue
		}
		sig := in.signature(s)
		for _, name := range s.Artifacts {
			out[name] = sig
		}
	}
	return out
}

func writeRecord(h hash.Hash, name string, data []byte) {
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(len(data))))
	h.Write([]byte{0})
	h.Write(data)
}
