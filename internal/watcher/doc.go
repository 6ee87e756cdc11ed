// Package watcher listens for udev netlink block events and hands freshly
// mounted removable partitions to the import pipeline. It waits for the
// desktop automounter to do its job: after a partition add event it polls the
// mount table under the configured mount bases until the device shows up,
// then invokes the handler with the mount point.
package watcher
