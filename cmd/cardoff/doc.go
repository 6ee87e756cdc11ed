// Command cardoff imports camera SD cards: it identifies the camera from the
// card's layout and metadata, routes the files to the network store or local
// staging, verifies every byte, and optionally deletes the originals.
package main
