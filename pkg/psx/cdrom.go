// Package psx provides PlayStation-specific structures and functionality.
// This file contains CD-ROM related structures for PlayStation disc images.
package psx

// Sector size constants for PlayStation CD-ROM
const (
	CD_SECTOR_SIZE  = 2352 // Full CD sector size
	CD_DATA_SIZE    = 2048 // Data portion of Mode 2 Form 1 sector
	CD_SYNC_SIZE    = 12   // Sync pattern size
	CD_HEADER_SIZE  = 4    // Header size (3 address bytes + 1 mode byte)
	CD_SUBHEAD_SIZE = 8    // XA subheader size (two copies of 4 bytes)

	// CD_DATA_OFFSET is where user data starts in a Mode 2 Form 1 sector
	CD_DATA_OFFSET = CD_SYNC_SIZE + CD_HEADER_SIZE + CD_SUBHEAD_SIZE

	// ISO_PVD_SECTOR holds the ISO9660 primary volume descriptor
	ISO_PVD_SECTOR = 16
)

// SectorSync is the 12-byte pattern opening every data sector
var SectorSync = [CD_SYNC_SIZE]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// VolumeInfo describes the ISO9660 volume found on a data track
type VolumeInfo struct {
	SystemID string `yaml:"system_id"` // e.g. "PLAYSTATION"
	VolumeID string `yaml:"volume_id"` // disc label
	Sectors  uint32 `yaml:"sectors"`   // volume space size in logical blocks
	BootFile string `yaml:"boot_file,omitempty"`
}

// CDFileEntry represents a file extracted from a directory record
type CDFileEntry struct {
	Name  string // File name without version suffix
	LBA   uint32 // Logical Block Address
	Size  uint32 // File size in bytes
	IsDir bool   // Whether this is a directory
}
