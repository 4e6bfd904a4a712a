package storage

import (
	"io/fs"
	"mime"
	"path/filepath"
	"time"

	"github.com/nitro-repo/nitro-repo/util/common"
)

const directoryMime = "text/directory"

// StorageFile describes one entry of a repository file tree.
type StorageFile struct {
	Name      string `json:"name"`
	FullPath  string `json:"full_path"`
	Mime      string `json:"mime"`
	Directory bool   `json:"directory"`
	FileSize  int64  `json:"file_size"`
	Size      string `json:"size,omitempty"`
	Modified  int64  `json:"modified"`
	Created   int64  `json:"created"`
}

// NewStorageFile builds the listing entry for a file found at relativePath.
func NewStorageFile(relativePath string, info fs.FileInfo) StorageFile {
	modified := info.ModTime().UnixMilli()
	file := StorageFile{
		Name:      info.Name(),
		FullPath:  relativePath,
		Directory: info.IsDir(),
		Modified:  modified,
		// Creation time is not portable; the modification time stands in for it.
		Created: modified,
	}
	if file.Directory {
		file.Mime = directoryMime
		return file
	}
	file.FileSize = info.Size()
	file.Size = common.GetSize(info.Size())
	file.Mime = MimeFor(info.Name())
	return file
}

// DirectoryFile describes a virtual directory such as a storage in the root listing.
func DirectoryFile(name, fullPath string, created int64) StorageFile {
	return StorageFile{
		Name:      name,
		FullPath:  fullPath,
		Mime:      directoryMime,
		Directory: true,
		Modified:  created,
		Created:   created,
	}
}

func MimeFor(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// StorageDirectoryResponse is a directory listing plus the directory itself.
type StorageDirectoryResponse struct {
	Files     []StorageFile `json:"files"`
	Directory StorageFile   `json:"directory"`
}

type FileResponseKind int

const (
	FileResponseNotFound FileResponseKind = iota
	FileResponseFile
	FileResponseList
)

// FileResponse is what a GET on a repository location resolves to.
type FileResponse struct {
	Kind FileResponseKind
	// Path is the local path of the file for FileResponseFile.
	Path    string
	File    *StorageFile
	Listing *StorageDirectoryResponse
}

func NotFoundResponse() *FileResponse {
	return &FileResponse{Kind: FileResponseNotFound}
}

// ModTime of the served file, zero for listings.
func (r *FileResponse) ModTime() time.Time {
	if r.File == nil {
		return time.Time{}
	}
	return time.UnixMilli(r.File.Modified)
}
