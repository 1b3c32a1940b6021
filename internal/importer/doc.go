// Package importer loads device-type definition files into the inventory.
//
// Definition files are YAML in the community device-type library layout:
// identity fields (manufacturer, model, slug, part number) followed by one
// hyphenated list per component category. The importer scans a directory
// tree, filters by manufacturer directory and a file-name regular
// expression, and upserts device types and their component templates.
//
// Imports converge: re-importing a file updates the device type in place
// and replaces each category's template set wholesale, so the stored
// templates always mirror the file. A dry run lists the files that would
// be imported without touching the store.
package importer
