// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package corpus

import "text/template"

// themeParams feeds one thematic template. Index keeps function names
// unique across the corpus; the loop bounds vary per file so the emitted
// functions are not byte-identical clones.
type themeParams struct {
	Index int
	Outer int
	Inner int
}

// templateTheme emits a function template plus a plain sibling. Forcing
// four instantiations gives inlining a lot of surface to expand into.
var templateTheme = template.Must(template.New("templates").Parse(`#include <iostream>
#include <string>

template<typename T>
void process_value_{{.Index}}(T value) {
    T result = (value * 2) / 1.5;
    std::cout << "Original: " << value
              << ", Processed: " << result
              << std::endl;
    if (result > {{.Outer}}) {
        std::cout << "Result is large!" << std::endl;
    }
}

void standalone_function_{{.Index}}() {
    std::cout << "This is a standalone function." << std::endl;
}

int main() {
    process_value_{{.Index}}<int>(10);
    process_value_{{.Index}}<double>(20.5);
    process_value_{{.Index}}<float>(30.5f);
    process_value_{{.Index}}<short>(5);

    standalone_function_{{.Index}}();
    return 0;
}
`))

// callIntensiveTheme emits a tiny helper invoked from a nested loop: the
// call overhead dominates, so forced inlining has maximal leverage.
var callIntensiveTheme = template.Must(template.New("call_intensive").Parse(`#include <vector>

int simple_increment_{{.Index}}(int a) {
    return a + 1;
}

int process_data_grid_{{.Index}}() {
    int total = 0;
    for (int i = 0; i < {{.Outer}}; ++i) {
        for (int j = 0; j < {{.Inner}}; ++j) {
            total += simple_increment_{{.Index}}(i * j);
        }
    }
    return total;
}

int main() {
    process_data_grid_{{.Index}}();
    return 0;
}
`))

// pipelineTheme emits a filter/sort/aggregate data-processing pipeline.
var pipelineTheme = template.Must(template.New("pipeline").Parse(`#include <iostream>
#include <vector>
#include <algorithm>
#include <numeric>

struct DataRecord {
    int id;
    double value;
    int category;
    bool active;
};

std::vector<DataRecord> filter_active_records_{{.Index}}(const std::vector<DataRecord>& records) {
    std::vector<DataRecord> filtered;
    for (const auto& rec : records) {
        if (rec.active && rec.value > 0) {
            filtered.push_back(rec);
        }
    }
    return filtered;
}

double calculate_category_average_{{.Index}}(const std::vector<DataRecord>& records, int cat) {
    double total = 0;
    int count = 0;
    for (const auto& rec : records) {
        if (rec.category == cat) {
            total += rec.value;
            count++;
        }
    }
    return (count == 0) ? 0.0 : total / count;
}

void run_processing_pipeline_{{.Index}}(std::vector<DataRecord>& initial_data) {
    auto active_records = filter_active_records_{{.Index}}(initial_data);
    std::sort(active_records.begin(), active_records.end(), [](const DataRecord& a, const DataRecord& b) {
        return a.value > b.value;
    });
    double avg = calculate_category_average_{{.Index}}(active_records, 1);
    std::cout << "Average for category 1: " << avg << std::endl;
}

int main() {
    std::vector<DataRecord> data;
    for (int i = 0; i < {{.Outer}}; ++i) {
        data.push_back({i, (double)(i % 1000), i % 5, (i % 2 == 0)});
    }
    run_processing_pipeline_{{.Index}}(data);
    return 0;
}
`))

// graphTheme emits a Dijkstra shortest-path search with a recursive path
// printer. Recursion limits what the optimizer can inline away, giving the
// dataset a counterpoint to the trivially inlinable themes.
var graphTheme = template.Must(template.New("graph").Parse(`#include <iostream>
#include <vector>
#include <queue>
#include <limits>

using AdjacencyList = std::vector<std::vector<std::pair<int, int>>>;

void print_path_{{.Index}}(const std::vector<int>& parent, int j) {
    if (parent[j] == -1) {
        std::cout << j;
        return;
    }
    print_path_{{.Index}}(parent, parent[j]);
    std::cout << " -> " << j;
}

void dijkstra_shortest_path_{{.Index}}(const AdjacencyList& adj, int start_node) {
    int n = adj.size();
    std::vector<int> dist(n, std::numeric_limits<int>::max());
    std::vector<int> parent(n, -1);

    dist[start_node] = 0;
    std::priority_queue<std::pair<int, int>, std::vector<std::pair<int, int>>, std::greater<std::pair<int, int>>> pq;
    pq.push({0, start_node});

    while (!pq.empty()) {
        int u = pq.top().second;
        pq.pop();

        for (const auto& edge : adj[u]) {
            int v = edge.first;
            int weight = edge.second;
            if (dist[v] > dist[u] + weight) {
                dist[v] = dist[u] + weight;
                parent[v] = u;
                pq.push({dist[v], v});
            }
        }
    }

    std::cout << "Shortest paths from node " << start_node << ":\n";
    for (int i = 0; i < n; ++i) {
        std::cout << "  Node " << i << " (dist=" << dist[i] << "): ";
        print_path_{{.Index}}(parent, i);
        std::cout << std::endl;
    }
}

int main() {
    int n = 6 + {{.Inner}} % 4;
    AdjacencyList adj(n);
    for (int i = 0; i < n; ++i) {
        int num_edges = ({{.Outer}} + i) % (n / 2) + 1;
        for (int j = 0; j < num_edges; ++j) {
            adj[i].push_back({(i * 7 + j * 13) % n, (i * 31 + j) % 100 + 1});
        }
    }
    dijkstra_shortest_path_{{.Index}}(adj, 0);
    return 0;
}
`))

// matrixTheme emits a class with in-class method definitions, exercising
// the qualified Class::method manifest form.
var matrixTheme = template.Must(template.New("matrix").Parse(`#include <iostream>
#include <vector>
#include <stdexcept>

class Matrix_{{.Index}} {
public:
    Matrix_{{.Index}}(int rows, int cols) : rows_(rows), cols_(cols), data_(rows * cols, 0.0) {}

    double& at(int r, int c) { return data_[r * cols_ + c]; }

    Matrix_{{.Index}} transpose() {
        Matrix_{{.Index}} result(cols_, rows_);
        for (int i = 0; i < rows_; ++i) {
            for (int j = 0; j < cols_; ++j) {
                result.at(j, i) = data_[i * cols_ + j];
            }
        }
        return result;
    }

    double trace() {
        double total = 0.0;
        for (int i = 0; i < rows_ && i < cols_; ++i) {
            total += at(i, i);
        }
        return total;
    }

private:
    int rows_, cols_;
    std::vector<double> data_;
};

int main() {
    Matrix_{{.Index}} m({{.Outer}}, {{.Outer}});
    for (int i = 0; i < {{.Outer}}; ++i) {
        for (int j = 0; j < {{.Outer}}; ++j) {
            m.at(i, j) = i + j;
        }
    }
    auto t = m.transpose();
    std::cout << t.trace() << std::endl;
    return 0;
}
`))
