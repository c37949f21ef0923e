// Package avatar assigns cosmetic avatars to new accounts.
//
// An avatar is a seed plus render parameters drawn from a fixed catalog.
// URLs point at a DiceBear-compatible image service; nothing here performs
// network I/O.
package avatar
