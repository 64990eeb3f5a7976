package hw

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"sort"
)

// Hash computes a structural content hash of a module tree. Two
// modules hash equal exactly when their ports, parameters,
// connections, and child trees (including instance names and
// per-instance parameter overrides) are identical. The hash is a pure
// function of the structure and never depends on pointer identity.
func Hash(m *Module) uint64 {
	return hashModule(m, make(map[*Module]uint64))
}

func hashModule(m *Module, memo map[*Module]uint64) uint64 {
	if h, ok := memo[m]; ok {
		return h
	}

	h := fnv.New64a()
	writeString(h, m.name)
	writeString(h, m.kind)
	if m.blackbox {
		writeUint(h, 1)
	}

	names := make([]string, 0, len(m.params))
	for name := range m.params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeString(h, name)
		writeUint(h, uint64(m.params[name]))
	}

	for _, p := range m.ports {
		writeString(h, p.Name)
		writeUint(h, uint64(p.Dir))
		writeUint(h, uint64(p.Width))
		writeUint(h, uint64(p.Size))
		if p.Array {
			writeUint(h, 1)
		} else {
			writeUint(h, 0)
		}
		writeUint(h, uint64(p.Kind))
	}

	for _, c := range m.conns {
		hashRef(h, c.Src)
		hashRef(h, c.Dst)
	}

	value := h.Sum64()
	for _, child := range m.children {
		value ^= hashInstance(child, memo)
	}

	memo[m] = value

	return value
}

// hashInstance folds the child hash with the instance name and its
// parameter overrides, so that swapping two same-shaped children still
// changes the parent hash.
func hashInstance(inst *Instance, memo map[*Module]uint64) uint64 {
	h := fnv.New64a()
	writeString(h, inst.Name)

	names := make([]string, 0, len(inst.params))
	for name := range inst.params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeString(h, name)
		writeUint(h, uint64(inst.params[name]))
	}

	writeUint(h, hashModule(inst.Module, memo))

	return h.Sum64()
}

func hashRef(w io.Writer, ref PortRef) {
	if ref.Instance != nil {
		writeString(w, ref.Instance.Name)
	} else {
		writeString(w, "")
	}
	writeString(w, ref.Port)
	writeUint(w, uint64(int64(ref.Index)))
	writeUint(w, uint64(ref.Lo))
	writeUint(w, uint64(ref.Hi))
}

func writeString(w io.Writer, s string) {
	_, _ = w.Write([]byte(s))
	_, _ = w.Write([]byte{0})
}

func writeUint(w io.Writer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = w.Write(buf[:])
}
