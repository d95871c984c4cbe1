package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/StreamKeeper/StreamKeeper/log"
)

// Repairer rebuilds a recording artifact left in an inconsistent state by an
// ungraceful transcoder exit into a valid, seekable container.
type Repairer struct {
	transcoder Transcoder
}

func NewRepairer(t Transcoder) *Repairer {
	return &Repairer{transcoder: t}
}

// Repair re-multiplexes the file at path into a temporary sibling and
// atomically replaces the original on success. On any failure the original
// file is left byte-for-byte untouched and the temporary artifact is removed.
// An empty file cannot be repaired: it is deleted and reported as failure.
func (rp *Repairer) Repair(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		log.Error("cannot repair recording, file not found: ", path)
		return false
	}
	if info.Size() == 0 {
		log.Warn("cannot repair recording, file is empty: ", path)
		if err := os.Remove(path); err != nil {
			log.Warn(fmt.Sprintf("could not remove empty file %s: %v", path, err))
		}
		return false
	}

	tmp := repairTempPath(path)
	if _, err := os.Stat(tmp); err == nil {
		log.Warn("removing stale temporary file: ", tmp)
		if err := os.Remove(tmp); err != nil {
			log.Error(fmt.Sprintf("could not remove stale temp file %s: %v", tmp, err))
			return false
		}
	}

	log.Info("attempting to repair recording: ", path)
	cmd := rp.transcoder.RepairCommand(path, tmp)
	runErr := cmd.Run()

	tmpInfo, statErr := os.Stat(tmp)
	if runErr == nil && statErr == nil && tmpInfo.Size() > 0 {
		if err := os.Rename(tmp, path); err != nil {
			log.Error(fmt.Sprintf("replacing %s with repaired file failed: %v", path, err))
			os.Remove(tmp)
			return false
		}
		log.Info("successfully repaired recording: ", path)
		return true
	}

	log.Error(fmt.Sprintf("failed to repair recording %s: %v", path, runErr))
	if statErr == nil {
		os.Remove(tmp)
	}
	return false
}

func repairTempPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".fixed" + ext
}
