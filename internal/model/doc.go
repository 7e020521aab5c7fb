package model

// Package model defines domain data structures shared by the bot: session
// states, requested formats, probe and fetch results, and delivery kinds.
// Structures are plain values with explicit state helpers.
