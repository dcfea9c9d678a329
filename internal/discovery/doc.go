// Package discovery reconciles the hub configuration against reality:
// working copies present under the hub root and, through the collaborator
// boundary, the owner's remote repository list.
package discovery
