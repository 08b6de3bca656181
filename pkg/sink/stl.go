// Package sink writes pipeline artifacts to their output formats: binary STL
// for the printable solids and layered SVG for 2D profile inspection.
package sink

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/mesh"
)

// stlHeaderSize is the fixed legacy header length of binary STL.
const stlHeaderSize = 80

// WriteSTL writes the solid to w as binary STL: 80-byte header, little-endian
// uint32 facet count, then one 50-byte record per facet (normal, vertices,
// attribute byte count). The header carries name for slicers that display it.
func WriteSTL(w io.Writer, name string, solid *mesh.Solid) error {
	tris := solid.Triangles()
	if len(tris) == 0 {
		return errors.New(errors.ErrCodeMeshAssembly, "solid %q has no facets to export", name)
	}

	bw := bufio.NewWriter(w)
	var header [stlHeaderSize]byte
	copy(header[:], name)
	if _, err := bw.Write(header[:]); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write STL header")
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(tris))); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write STL facet count")
	}

	var rec [50]byte
	for _, t := range tris {
		n := t.Normal()
		putVec(rec[0:], n)
		putVec(rec[12:], t[0])
		putVec(rec[24:], t[1])
		putVec(rec[36:], t[2])
		rec[48], rec[49] = 0, 0
		if _, err := bw.Write(rec[:]); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write STL facet")
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "flush STL")
	}
	return nil
}

// WriteSTLFile writes the solid to path, creating or truncating it.
func WriteSTLFile(path, name string, solid *mesh.Solid) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	if err := WriteSTL(f, name, solid); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}

func putVec(b []byte, v mesh.Vec3) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}
