package usecase

// DefaultSubmit is exported for testing
var DefaultSubmit = defaultSubmit

// ExistingImages is exported for testing
var ExistingImages = existingImages
