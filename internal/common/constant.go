package common

// Remote layout names shared by the provisioner, the manifests and the caches.
const (
	RootFolderName = "Ekamanam"

	LibraryIndexFile = "library_index.json"
	HubsIndexFile    = "hubs_index.json"

	// ManifestVersion is written into every manifest object.
	ManifestVersion = 1

	JSONMimeType = "application/json"
	PDFMimeType  = "application/pdf"
)
