package models

// RemoteFile describes one entry of the remote drive listing.
type RemoteFile struct {
	ID         string // Drive item identifier
	Name       string // Display name
	MimeType   string // Declared content type, empty for folders
	ParentPath string // Path of the containing folder, when the API reports it
	Folder     bool   // True when the entry has no file facet
}

// IsFolder reports whether the entry is not a downloadable file.
func (f RemoteFile) IsFolder() bool {
	return f.Folder
}
