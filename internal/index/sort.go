package index

import "sort"

// SortDirectories and SortFiles apply the three orderings of spec.md
// §4.3.4. "Directories first, then links, then files" is the caller's
// responsibility (list_directory returns subdirs and files as two
// separate ordered lists already grouped by kind); within each list these
// functions provide the required stable ordering.

// SortDirectories orders a directory listing. Last-modified grouping uses
// each directory's last_sync_time as its mtime proxy.
func SortDirectories(dirs []Directory, order SortOrder) {
	switch order {
	case SortLastModified:
		sort.SliceStable(dirs, func(i, j int) bool {
			if !dirs[i].LastSyncTime.Equal(dirs[j].LastSyncTime) {
				return dirs[i].LastSyncTime.After(dirs[j].LastSyncTime)
			}
			return naturalLess(dirs[i].FQPN, dirs[j].FQPN)
		})
	default: // SortNaturalName, SortNameOnly
		sort.SliceStable(dirs, func(i, j int) bool {
			return naturalLess(dirs[i].FQPN, dirs[j].FQPN)
		})
	}
}

// SortFiles orders a file listing per the selected policy.
func SortFiles(files []File, order SortOrder) {
	switch order {
	case SortLastModified:
		sort.SliceStable(files, func(i, j int) bool {
			if !files[i].Mtime.Equal(files[j].Mtime) {
				return files[i].Mtime.After(files[j].Mtime)
			}
			return naturalLess(files[i].Name, files[j].Name)
		})
	default: // SortNaturalName, SortNameOnly
		sort.SliceStable(files, func(i, j int) bool {
			return naturalLess(files[i].Name, files[j].Name)
		})
	}
}
