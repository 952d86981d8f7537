// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the resolver and the profile database over a
// local HTTP API.
package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/collegelinks/collegelinks/geocoding"
	"github.com/collegelinks/collegelinks/profile"
)

type Server struct {
	resolver    *geocoding.Resolver
	profileRepo profile.Repository
	retryBudget int
}

func NewServer(resolver *geocoding.Resolver, profileRepo profile.Repository, retryBudget int) *Server {
	return &Server{
		resolver:    resolver,
		profileRepo: profileRepo,
		retryBudget: retryBudget,
	}
}

func (s *Server) Run() error {
	r := gin.Default()

	r.GET("/api/geocode", s.geocode)
	r.GET("/api/colleges", s.listColleges)
	r.GET("/api/colleges/nearby", s.nearbyColleges)
	r.GET("/api/colleges/:id", s.getCollege)
	r.GET("/api/stats", s.stats)

	return r.Run("localhost:8080")
}

func (s *Server) geocode(ctx *gin.Context) {
	addr := ctx.Query("address")
	if addr == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})

		return
	}

	result := s.resolver.Geocode(addr, s.retryBudget)
	if result.Failed() {
		ctx.JSON(http.StatusNotFound, result)

		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (s *Server) listColleges(ctx *gin.Context) {
	var state *string
	if v := ctx.Query("state"); v != "" {
		state = &v
	}

	limit := 100
	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})

			return
		}

		limit = n
	}

	offset := 0
	if v := ctx.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset parameter"})

			return
		}

		offset = n
	}

	profiles, err := s.profileRepo.List(state, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if profiles == nil {
		profiles = []*profile.Profile{}
	}

	ctx.JSON(http.StatusOK, profiles)
}

// defaultNearbyRadius bounds the search when the client gives none.
const defaultNearbyRadius = 25000.0 // meters

func (s *Server) nearbyColleges(ctx *gin.Context) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "lat query parameter is required"})

		return
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "lng query parameter is required"})

		return
	}

	radius := defaultNearbyRadius

	if v := ctx.Query("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius parameter"})

			return
		}
	}

	profiles, err := s.profileRepo.Nearby(lat, lng, radius, 100)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if profiles == nil {
		profiles = []*profile.Profile{}
	}

	ctx.JSON(http.StatusOK, profiles)
}

func (s *Server) getCollege(ctx *gin.Context) {
	p, err := s.profileRepo.Get(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "college not found"})

			return
		}

		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, p)
}

func (s *Server) stats(ctx *gin.Context) {
	total, err := s.profileRepo.Count()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	geocoded, err := s.profileRepo.CountGeocoded()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"colleges": total,
		"geocoded": geocoded,
	})
}
