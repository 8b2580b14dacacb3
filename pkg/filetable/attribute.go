package filetable

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"path/filepath"

	"github.com/marmos91/pldmfs/internal/logger"
)

// AttributeTable encodes the PLDM file attribute table for entries whose
// backing file currently exists:
//
//	handle u32 | name length u16 | name | size u32 | traits u32
//
// followed by zero padding to a 4-byte boundary and a CRC32 (IEEE) of the
// unpadded entries. All integers are little endian. Returns nil when no
// entry qualifies.
func (t *Table) AttributeTable() []byte {
	var buf []byte
	for _, e := range t.Entries() {
		size, err := statPath(e.Path)
		if err != nil {
			logger.Debug("file table: skipping handle=%d path=%s: %v", e.Handle, e.Path, err)
			continue
		}
		name := filepath.Base(e.Path)
		if len(name) > math.MaxUint16 {
			name = name[:math.MaxUint16]
		}
		if size > math.MaxUint32 {
			size = math.MaxUint32
		}

		buf = binary.LittleEndian.AppendUint32(buf, e.Handle)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(name)))
		buf = append(buf, name...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
		buf = binary.LittleEndian.AppendUint32(buf, e.Traits)
	}
	if len(buf) == 0 {
		return nil
	}

	checksum := crc32.ChecksumIEEE(buf)
	if pad := (4 - len(buf)%4) % 4; pad > 0 {
		buf = append(buf, make([]byte, pad)...)
	}
	return binary.LittleEndian.AppendUint32(buf, checksum)
}
