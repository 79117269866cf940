// Package campaign dispatches a campaign to every subscribed recipient of its
// list.
//
// Dispatch resolves the sender and recipients, personalizes and tracks each
// message, submits it through the mail API and records the outcome. Failures
// of single recipients are collected, never propagated, and the campaign is
// marked sent exactly once at the end.
//
// Repository implementations live in repository/postgres/.
package campaign
