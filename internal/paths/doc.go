// Provides platform-appropriate build directories for the assembler.
//
// Each image name maps to a pair of directories under a fixed build root:
// an output directory where the generated recipe and the resolved assembly
// are staged, and a temporary root where archives and the changed-files
// scratch area are written. The default build root follows XDG conventions
// on Linux and platform-native conventions on macOS and Windows, with
// "baler" as the subdirectory under the base path.
package paths
