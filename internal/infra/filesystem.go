package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/config"
)

// GetWorkDir resolves the configured dot directory (plus optional
// subpaths), creating it if needed.
func GetWorkDir(path ...string) string {
	base := config.Get().DotPath
	if base == "" {
		base = filepath.Join("~", ".web3bot")
	}
	parts := append([]string{base}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		log.Fatalln(err)
	}
	if err = os.MkdirAll(workDir, os.ModePerm); err != nil {
		log.Fatalln(err)
	}
	return workDir
}
