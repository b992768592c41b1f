// Package psx provides PlayStation-specific CD-ROM reading functionality.
// The reader works on raw 2352-byte sector images and only understands the
// parts of ISO9660 needed to label a disc and locate its boot executable.
package psx

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/hansbonini/popsvcd/pkg/common"
)

// systemConfigName is the boot configuration file on every PlayStation disc
const systemConfigName = "SYSTEM.CNF"

// CDReader reads Mode 2 Form 1 user data out of a raw sector image
type CDReader struct {
	src           io.ReaderAt
	totalSectors  int64
	currentSector int64
	currentOffset int
	sectorBuffer  []byte
}

// NewCDReader creates a new CD reader over size bytes of raw sectors
func NewCDReader(src io.ReaderAt, size int64) *CDReader {
	return &CDReader{
		src:           src,
		totalSectors:  size / CD_SECTOR_SIZE,
		currentSector: -1,
		sectorBuffer:  make([]byte, CD_SECTOR_SIZE),
	}
}

// SeekToSector loads a data sector into the buffer and rewinds the data
// cursor. Sectors without the sync pattern, such as audio, are rejected.
func (r *CDReader) SeekToSector(lba int64) error {
	if lba >= r.totalSectors || lba < 0 {
		return fmt.Errorf("LBA %d out of bounds (total: %d)", lba, r.totalSectors)
	}

	// ReaderAt may report io.EOF together with a full final sector
	if n, err := r.src.ReadAt(r.sectorBuffer, lba*CD_SECTOR_SIZE); n < len(r.sectorBuffer) {
		return fmt.Errorf("failed to read sector %d: %w", lba, err)
	}
	if !bytes.Equal(r.sectorBuffer[:CD_SYNC_SIZE], SectorSync[:]) {
		return fmt.Errorf("sector %d is not a data sector (no sync pattern)", lba)
	}

	r.currentSector = lba
	r.currentOffset = 0
	return nil
}

// ReadBytes reads user data from the current position, crossing sectors
func (r *CDReader) ReadBytes(buffer []byte) (int, error) {
	bytesRead := 0

	for bytesRead < len(buffer) {
		if r.currentOffset >= CD_DATA_SIZE {
			if err := r.SeekToSector(r.currentSector + 1); err != nil {
				return bytesRead, err
			}
		}

		toCopy := len(buffer) - bytesRead
		if available := CD_DATA_SIZE - r.currentOffset; toCopy > available {
			toCopy = available
		}

		start := CD_DATA_OFFSET + r.currentOffset
		copy(buffer[bytesRead:], r.sectorBuffer[start:start+toCopy])
		bytesRead += toCopy
		r.currentOffset += toCopy
	}

	return bytesRead, nil
}

// ReadVolumeInfo reads the primary volume descriptor and the boot file name
// from SYSTEM.CNF. A missing SYSTEM.CNF is not an error.
func (r *CDReader) ReadVolumeInfo() (*VolumeInfo, error) {
	if err := r.SeekToSector(ISO_PVD_SECTOR); err != nil {
		return nil, err
	}

	data := make([]byte, CD_DATA_SIZE)
	if _, err := r.ReadBytes(data); err != nil {
		return nil, err
	}

	// Check for ISO9660 signature: 0x01 + "CD001" + 0x01
	if data[0] != 0x01 || string(data[1:6]) != "CD001" {
		return nil, fmt.Errorf("invalid ISO9660 signature at sector %d", ISO_PVD_SECTOR)
	}

	info := &VolumeInfo{
		SystemID: strings.TrimSpace(string(data[8:40])),
		VolumeID: strings.TrimSpace(string(data[40:72])),
		Sectors:  binary.LittleEndian.Uint32(data[80:84]),
	}

	// Root directory record lives at offset 156 of the descriptor
	root := data[156:190]
	rootLBA := binary.LittleEndian.Uint32(root[2:6])
	rootSize := binary.LittleEndian.Uint32(root[10:14])

	entries, err := r.ParseDirectoryEntries(int64(rootLBA), rootSize)
	if err != nil {
		return info, nil
	}

	for _, entry := range entries {
		if entry.IsDir || !strings.EqualFold(entry.Name, systemConfigName) {
			continue
		}
		config, err := r.ReadFile(entry)
		if err != nil {
			common.LogDebug("Could not read %s: %v", systemConfigName, err)
			break
		}
		info.BootFile = ParseBootFile(config)
		break
	}

	return info, nil
}

// ParseDirectoryEntries parses the records of a directory extent
func (r *CDReader) ParseDirectoryEntries(lba int64, sizeInBytes uint32) ([]CDFileEntry, error) {
	var entries []CDFileEntry
	sizeInSectors := (sizeInBytes + CD_DATA_SIZE - 1) / CD_DATA_SIZE

	for sector := uint32(0); sector < sizeInSectors; sector++ {
		if err := r.SeekToSector(lba + int64(sector)); err != nil {
			return nil, fmt.Errorf("failed to seek to sector %d: %w", lba+int64(sector), err)
		}

		data := r.sectorBuffer[CD_DATA_OFFSET : CD_DATA_OFFSET+CD_DATA_SIZE]
		offset := 0
		for offset < CD_DATA_SIZE {
			length := int(data[offset])
			// A zero length record pads the rest of the sector
			if length == 0 || length < 33 || offset+length > CD_DATA_SIZE {
				break
			}

			if entry, ok := parseDirectoryRecord(data[offset : offset+length]); ok {
				entries = append(entries, entry)
			}
			offset += length
		}
	}

	return entries, nil
}

// parseDirectoryRecord decodes one ISO9660 directory record, skipping the
// "." and ".." entries
func parseDirectoryRecord(data []byte) (CDFileEntry, bool) {
	nameLength := int(data[32])
	if 33+nameLength > len(data) || nameLength == 0 {
		return CDFileEntry{}, false
	}

	name := string(data[33 : 33+nameLength])
	if name == "\x00" || name == "\x01" {
		return CDFileEntry{}, false
	}

	return CDFileEntry{
		Name:  common.CleanFileName(name),
		LBA:   binary.LittleEndian.Uint32(data[2:6]),
		Size:  binary.LittleEndian.Uint32(data[10:14]),
		IsDir: data[25]&0x02 != 0,
	}, true
}

// ReadFile returns the contents of a file entry
func (r *CDReader) ReadFile(entry CDFileEntry) ([]byte, error) {
	if err := r.SeekToSector(int64(entry.LBA)); err != nil {
		return nil, err
	}

	data := make([]byte, entry.Size)
	n, err := r.ReadBytes(data)
	if err != nil {
		return data[:n], fmt.Errorf("failed to read %s: %w", entry.Name, err)
	}
	return data, nil
}

// ParseBootFile extracts the executable name from a SYSTEM.CNF body,
// e.g. "BOOT = cdrom:\SLUS_012.34;1" yields "SLUS_012.34"
func ParseBootFile(config []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(config))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "BOOT") {
			continue
		}

		value = strings.TrimSpace(value)
		if idx := strings.LastIndexAny(value, `\/:`); idx != -1 {
			value = value[idx+1:]
		}
		return common.CleanFileName(strings.TrimSpace(value))
	}
	return ""
}
