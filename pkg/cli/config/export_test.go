package config

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, redisAddr string) *Repository {
	return &Repository{backend: backend, projectID: projectID, redisAddr: redisAddr}
}

// NewUploadForTest creates an Upload config for testing purposes
func NewUploadForTest(backend, bucket, memoryBase string) *Upload {
	return &Upload{backend: backend, bucket: bucket, memoryBase: memoryBase}
}

// NewAPIForTest creates an API config for testing purposes
func NewAPIForTest(baseURL, token string) *API {
	return &API{baseURL: baseURL, token: token}
}

// NewResourcesForTest creates a Resources config for testing purposes
func NewResourcesForTest(path string) *Resources {
	return &Resources{path: path}
}
