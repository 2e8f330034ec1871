package archive

// Ext is appended to the bucket name to form the container name.
const Ext = ".tar.xz"

// tempPrefix keeps an in-progress container off both the final name and
// the numeric namespace.
const tempPrefix = "tmp"

// FinalName is the published container name for bucket name.
func FinalName(name string) string {
	return name + Ext
}

// TempName is where the container for bucket name is written before publish.
func TempName(name string) string {
	return tempPrefix + name + Ext
}
