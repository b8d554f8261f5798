package pdfdoc

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Image is an embedded raster image extracted from a page.
type Image struct {
	Data      []byte
	Extension string
	Width     int
	Height    int
}

// PageImages extracts embedded images from a page. Only streams whose sole
// filter is DCTDecode are returned, since their raw bytes are a complete
// JPEG file. Other encodings are counted in skipped so callers can surface
// a warning. Images smaller than minWidth x minHeight are dropped silently
// and at most maxPerPage images are returned; zero disables either limit.
func (r *Reader) PageImages(pageIndex int, minWidth, minHeight, maxPerPage int) (imgs []Image, skipped int, err error) {
	if pageIndex < 0 || pageIndex >= r.PageCount() {
		return nil, 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pdf.Optimize == nil {
		return nil, 0, nil
	}

	for _, objNr := range pdfcpu.ImageObjNrs(r.pdf, pageIndex+1) {
		entry := r.pdf.Table[objNr]
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}

		if !isJPEGStream(sd) {
			skipped++
			continue
		}

		width := dictInt(sd, "Width")
		height := dictInt(sd, "Height")
		if width < minWidth || height < minHeight {
			continue
		}

		imgs = append(imgs, Image{
			Data:      sd.Raw,
			Extension: "jpg",
			Width:     width,
			Height:    height,
		})
		if maxPerPage > 0 && len(imgs) >= maxPerPage {
			break
		}
	}
	return imgs, skipped, nil
}

// isJPEGStream reports whether the stream's only filter is DCTDecode,
// meaning Raw holds JPEG bytes as-is.
func isJPEGStream(sd types.StreamDict) bool {
	filter, found := sd.Find("Filter")
	if !found {
		return false
	}
	switch f := filter.(type) {
	case types.Name:
		return f == "DCTDecode"
	case types.Array:
		if len(f) != 1 {
			return false
		}
		n, ok := f[0].(types.Name)
		return ok && n == "DCTDecode"
	}
	return false
}

// dictInt reads an integer entry from a stream dictionary, zero if absent.
func dictInt(sd types.StreamDict, key string) int {
	obj, found := sd.Find(key)
	if !found {
		return 0
	}
	if i, ok := obj.(types.Integer); ok {
		return int(i)
	}
	return 0
}
