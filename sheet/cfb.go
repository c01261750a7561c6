package sheet

import (
	"fmt"
	"io"
)

// maxRegSect is the largest sector index that is not a reserved sentinel
// (FREESECT/ENDOFCHAIN/FATSECT/DIFSECT all sit above it).
const maxRegSect = 0xFFFFFFFB

var cfbSignature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// cfbDirectory is one directory entry: the first sector/mini-sector of its
// stream, and the stream's declared byte length.
type cfbDirectory struct {
	index int
	count int
}

// cfb is an OLE Compound File Binary container: the legacy .xls/.xla/.et
// envelope. It is read eagerly and in full (per §4.1), then queried by
// name.
type cfb struct {
	directories map[string]cfbDirectory
	fat         []int
	sectors     cfbSectors
	miniFat     []int
	miniSectors cfbSectors
}

type cfbSectors struct {
	data []byte
	size int
}

// get returns the bytes of the sector at the given 0-based index, clamped
// to the end of the backing buffer (the final sector of a file is often
// partially populated). The backing buffer starts with one sector-sized
// lead-in (the file header for regular sectors), so sector i begins at
// (i+1)*size.
func (s cfbSectors) get(index int) []byte {
	start := (index + 1) * s.size
	end := (index + 2) * s.size
	if end > len(s.data) {
		end = len(s.data)
	}
	if start > end {
		start = end
	}
	return s.data[start:end]
}

// newCFB parses the entire CFB container from r, which must support
// seeking since the header declares absolute sector offsets.
func newCFB(r io.ReadSeeker) (*cfb, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, withPrefix("cfb", err)
	}
	if size < 512 {
		return nil, &CorruptContainerError{Reason: "compound file is too small to contain a header"}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, withPrefix("cfb", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, withPrefix("cfb: reading container", err)
	}

	header, err := parseCFBHeader(data[:512])
	if err != nil {
		return nil, err
	}
	sectorSize, err := header.sectorSize()
	if err != nil {
		return nil, err
	}
	sectors := cfbSectors{data: data, size: sectorSize}

	fat, err := loadFAT(sectors, header)
	if err != nil {
		return nil, err
	}
	directories, err := loadDirectories(fat, sectors, header.directoryShift)
	if err != nil {
		return nil, err
	}
	miniFat, err := loadMiniFAT(fat, sectors, header)
	if err != nil {
		return nil, err
	}
	var miniSectors cfbSectors
	if root, ok := directories["Root Entry"]; ok {
		miniBytes, err := readChain(fat, sectors, root.index)
		if err != nil {
			return nil, err
		}
		if root.count < len(miniBytes) {
			miniBytes = miniBytes[:root.count]
		}
		// A 64-byte lead-in keeps get's (i+1)*size offset pointing at mini
		// sector i, mirroring the header in front of the regular sectors.
		miniSectors = cfbSectors{data: append(make([]byte, 64), miniBytes...), size: 64}
	} else {
		miniSectors = cfbSectors{data: nil, size: 64}
	}

	return &cfb{
		directories: directories,
		fat:         fat,
		sectors:     sectors,
		miniFat:     miniFat,
		miniSectors: miniSectors,
	}, nil
}

// exists reports whether a named stream is present in the container.
func (c *cfb) exists(name string) bool {
	_, ok := c.directories[name]
	return ok
}

// read returns the full contents of a named stream, truncated to its
// declared length, or (nil, false) if the stream does not exist.
func (c *cfb) read(name string) ([]byte, bool, error) {
	dir, ok := c.directories[name]
	if !ok {
		return nil, false, nil
	}
	var bytes []byte
	var err error
	if dir.count < 4096 {
		bytes, err = readChain(c.miniFat, c.miniSectors, dir.index)
	} else {
		bytes, err = readChain(c.fat, c.sectors, dir.index)
	}
	if err != nil {
		return nil, false, err
	}
	if dir.count < len(bytes) {
		bytes = bytes[:dir.count]
	}
	return bytes, true, nil
}

type cfbHeader struct {
	signature      [8]byte
	majorVersion   uint16
	sectorShift    uint16
	fatCount       int
	directoryShift int
	miniFatShift   int
	miniFatCount   int
	difatShift     int
	difatCount     int
}

func parseCFBHeader(data []byte) (cfbHeader, error) {
	var h cfbHeader
	copy(h.signature[:], data[0:8])
	if h.signature != cfbSignature {
		return h, &CorruptContainerError{Reason: "invalid OLE signature (not an office document?)"}
	}
	h.majorVersion = u16At(data, 26)
	h.sectorShift = u16At(data, 30)
	h.fatCount = int(u32At(data, 44))
	h.directoryShift = int(u32At(data, 48))
	h.miniFatShift = int(u32At(data, 60))
	h.miniFatCount = int(u32At(data, 64))
	h.difatShift = int(u32At(data, 68))
	h.difatCount = int(u32At(data, 72))
	return h, nil
}

func (h cfbHeader) sectorSize() (int, error) {
	switch {
	case h.majorVersion == 3 && h.sectorShift == 0x0009:
		return 512, nil
	case h.majorVersion == 4 && h.sectorShift == 0x000C:
		return 4096, nil
	default:
		return 0, &CorruptContainerError{
			Reason: fmt.Sprintf("invalid sector size '2^%d' for major version '%d'", h.sectorShift, h.majorVersion),
		}
	}
}

// loadFAT walks the DIFAT (master sector allocation table) to materialize
// the File Allocation Table as a sector->next-sector slice.
func loadFAT(sectors cfbSectors, header cfbHeader) ([]int, error) {
	var difat []uint32
	for _, v := range u32Iter(sectors.slice(76, 512)) {
		difat = append(difat, v)
	}

	count := 0
	index := header.difatShift
	for index < maxRegSect {
		chunk := u32Iter(sectors.get(index))
		difat = append(difat, chunk...)
		if len(difat) == 0 {
			return nil, &CorruptContainerError{Reason: "DIFAT chain ended without a next-sector pointer"}
		}
		index = int(difat[len(difat)-1])
		difat = difat[:len(difat)-1]
		count++
	}
	if count != header.difatCount {
		return nil, &CorruptContainerError{
			Reason: fmt.Sprintf("double indirect file allocation table error: expected %d, actual %d", header.difatCount, count),
		}
	}

	var fat []int
	fatSectorCount := 0
	for _, idx := range difat {
		if int(idx) < maxRegSect {
			for _, v := range u32Iter(sectors.get(int(idx))) {
				fat = append(fat, int(v))
			}
			fatSectorCount++
		}
	}
	if fatSectorCount != header.fatCount {
		return nil, &CorruptContainerError{
			Reason: fmt.Sprintf("file allocation table error: expected %d, actual %d", header.fatCount, fatSectorCount),
		}
	}
	return fat, nil
}

func loadDirectories(fat []int, sectors cfbSectors, index int) (map[string]cfbDirectory, error) {
	bytes, err := readChain(fat, sectors, index)
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]cfbDirectory)
	for off := 0; off+128 <= len(bytes); off += 128 {
		name, dir := parseDirectoryEntry(bytes[off : off+128])
		if name != "" {
			dirs[name] = dir
		}
	}
	if len(dirs) == 0 {
		return nil, &CorruptContainerError{Reason: "empty root directory"}
	}
	return dirs, nil
}

func parseDirectoryEntry(entry []byte) (string, cfbDirectory) {
	size := int(u16At(entry, 64))
	if size > 64 {
		size = 64
	}
	name := decodeUTF16LE(entry[:size])
	index := int(u32At(entry, 116))
	count := int(u64At(entry, 120))
	return name, cfbDirectory{index: index, count: count}
}

func loadMiniFAT(fat []int, sectors cfbSectors, header cfbHeader) ([]int, error) {
	if header.miniFatCount == 0 {
		return nil, nil
	}
	bytes, err := readChain(fat, sectors, header.miniFatShift)
	if err != nil {
		return nil, err
	}
	miniFat := make([]int, 0, len(bytes)/4)
	for _, v := range u32Iter(bytes) {
		miniFat = append(miniFat, int(v))
	}
	return miniFat, nil
}

// readChain follows a FAT/miniFAT sector chain starting at index until it
// reaches the end-of-chain sentinel, concatenating sector contents.
func readChain(fat []int, sectors cfbSectors, index int) ([]byte, error) {
	var content []byte
	for index < maxRegSect {
		content = append(content, sectors.get(index)...)
		if index < 0 || index >= len(fat) {
			return nil, &CorruptContainerError{Reason: "sector chain referenced an out-of-range sector"}
		}
		index = fat[index]
	}
	return content, nil
}

func (s cfbSectors) slice(lo, hi int) []byte {
	if hi > len(s.data) {
		hi = len(s.data)
	}
	if lo > hi {
		lo = hi
	}
	return s.data[lo:hi]
}
