package extractor

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

type atlasDoc struct {
	Texture struct {
		Filename string `xml:"filename,attr"`
	} `xml:"Texture"`
	Elements []atlasElement `xml:"Elements>Element"`
}

type atlasElement struct {
	Name string `xml:"name,attr"`
	U1   string `xml:"u1,attr"`
	U2   string `xml:"u2,attr"`
	V1   string `xml:"v1,attr"`
	V2   string `xml:"v2,attr"`
}

// IconsExtractor indexes the inventory image atlases.
type IconsExtractor struct{}

// NewIconsExtractor creates the icons extractor.
func NewIconsExtractor() *IconsExtractor { return &IconsExtractor{} }

// Kind implements Extractor.
func (e *IconsExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorIcons }

// Extract implements Extractor. When two atlases define the same element the atlas that
// sorts first wins.
func (e *IconsExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	res := newResult(e.Kind())
	paths, err := selectFiles(in, "images/inventoryimages*.xml")
	if err != nil {
		return nil, err
	}
	col, err := processFiles(ctx, in, e.Kind(), paths, func(p, content string) ([]entity.Icon, error) {
		return ParseAtlas(p, content)
	})
	if err != nil {
		return nil, err
	}

	res.Icons = make(map[string]entity.Icon)
	res.Atlases = []string{}
	res.Unresolved = append(res.Unresolved, col.unresolved...)
	col.each(func(p string, icons []entity.Icon) {
		res.Atlases = append(res.Atlases, p)
		for _, icon := range icons {
			id, ok := entity.CleanID(strings.TrimSuffix(icon.Element, ".tex"))
			if !ok {
				res.unresolved(e.Kind(), p, icon.Element, entity.ReasonInvalidID, "")
				continue
			}
			if _, dup := res.Icons[id]; !dup {
				res.Icons[id] = icon
			}
		}
	}, paths)
	return res.finish(len(paths), len(res.Icons)), nil
}

// ParseAtlas reads the elements of one atlas XML document.
func ParseAtlas(p, content string) ([]entity.Icon, error) {
	var doc atlasDoc
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}
	out := make([]entity.Icon, 0, len(doc.Elements))
	for _, el := range doc.Elements {
		if el.Name == "" {
			continue
		}
		out = append(out, entity.Icon{
			Atlas:   p,
			Texture: doc.Texture.Filename,
			Element: el.Name,
			UV: entity.IconUV{
				U1: atof(el.U1),
				U2: atof(el.U2),
				V1: atof(el.V1),
				V2: atof(el.V2),
			},
		})
	}
	return out, nil
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
