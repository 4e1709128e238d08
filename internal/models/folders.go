package models

// Logical folder names of the remote hierarchy.
const (
	FolderRoot       = "root"
	FolderDocuments  = "documents"
	FolderCache      = "cache"
	FolderResponses  = "responses"
	FolderIndex      = "index"
	FolderEmbeddings = "embeddings"
	FolderNotes      = "notes"
	FolderProgress   = "progress"
)

// FolderManifest maps logical folder names to remote folder handles.
type FolderManifest map[string]string

// Handle returns the remote handle of a logical folder.
func (m FolderManifest) Handle(name string) (string, bool) {
	h, ok := m[name]
	return h, ok && h != ""
}
