package jobstore

// New selects a PostgresStore when databaseURL is set, otherwise a
// FileStore rooted at filePath.
func New(databaseURL, filePath string) (JobStore, error) {
	if databaseURL != "" {
		return NewPostgresStore(databaseURL)
	}
	return NewFileStore(filePath)
}
