package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a task references a task that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoTargetsSpecified is returned when a run is requested without any task.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrInvalidTaskKind is returned when a task carries an action kind the executor does not know.
	ErrInvalidTaskKind = zerr.New("invalid task kind")

	// ErrBundleFailed is returned when esbuild cannot produce a bundle for an entry.
	ErrBundleFailed = zerr.New("failed to bundle script")

	// ErrStyleCompileFailed is returned when the stylesheet compiler rejects an entry.
	ErrStyleCompileFailed = zerr.New("failed to compile stylesheet")

	// ErrUnknownVendor is returned when a packaging run names a vendor without a packaging routine.
	ErrUnknownVendor = zerr.New("unknown vendor")

	// ErrPackageFailed is returned when staging or archiving a vendor package fails.
	ErrPackageFailed = zerr.New("failed to package extension")

	// ErrCleanFailed is returned when a generated file cannot be removed.
	ErrCleanFailed = zerr.New("failed to clean generated file")

	// ErrStoreCreateFailed is returned when the build info store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create build info store directory")

	// ErrStoreReadFailed is returned when the build info cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build info")

	// ErrStoreUnmarshalFailed is returned when the build info cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal build info")

	// ErrStoreMarshalFailed is returned when the build info cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal build info")

	// ErrStoreWriteFailed is returned when the build info cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build info")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a parsed config holds values that cannot be used.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrBuildInterrupted is returned when the user quits the interactive view during a run.
	ErrBuildInterrupted = zerr.New("build interrupted")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrTaskSkipped is attached to tasks that never started because a prerequisite failed.
	ErrTaskSkipped = zerr.New("task skipped")

	// ErrInputHashComputationFailed is returned when input hash computation fails.
	ErrInputHashComputationFailed = zerr.New("failed to compute input hash")

	// ErrOutputHashComputationFailed is returned when output hash computation fails.
	ErrOutputHashComputationFailed = zerr.New("failed to compute output hash")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrWatcherStartFailed is returned when the file system watcher cannot be started.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")

	// ErrLiveReloadFailed is returned when the live-reload server cannot listen.
	ErrLiveReloadFailed = zerr.New("failed to start live-reload server")
)
