package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ParseOBJ reads the vertex and face records of a Wavefront OBJ stream.
// Polygons are fan-triangulated; texture and normal indices are ignored.
func ParseOBJ(r io.Reader, name string) (*Object, error) {
	var (
		verts []r3.Vec
		tris  []Triangle
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: vertex needs 3 coordinates", name, line)
			}
			var xyz [3]float64
			for i := range xyz {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", name, line, err)
				}
				xyz[i] = f
			}
			verts = append(verts, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face needs 3 vertices", name, line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				i, err := vertexIndex(tok, len(verts))
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", name, line, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				tris = append(tris, Triangle{verts[idx[0]], verts[idx[k]], verts[idx[k+1]]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoGeometry)
	}

	return NewObject(name, tris, ColorFor(name)), nil
}

// vertexIndex resolves a face token ("7", "7/1", "7//3", "-1") to a
// zero-based vertex index.
func vertexIndex(tok string, count int) (int, error) {
	if slash := strings.IndexByte(tok, '/'); slash >= 0 {
		tok = tok[:slash]
	}
	i, err := strconv.Atoi(tok)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, ErrBadFace
	}
	return i, nil
}

// LoadOBJ parses the mesh at path. The object is named after the file.
func LoadOBJ(path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseOBJ(f, filepath.Base(path))
}

// LoadDir adds every *.obj file in dir to the cabinet, in name order.
func LoadDir(c *Cabinet, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.obj"))
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	loaded := 0
	for _, p := range paths {
		obj, err := LoadOBJ(p)
		if err != nil {
			return loaded, err
		}
		c.Add(obj)
		loaded++
	}
	return loaded, nil
}
